package fleet

import (
	"errors"
	"strings"
	"testing"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
)

type transition struct{ from, to core.AgentState }

// recorder ticks a fleet and remembers every state change it reports.
type recorder struct {
	t    *testing.T
	f    *Fleet
	seen map[transition]bool
}

func (r *recorder) tick() Snapshot {
	r.t.Helper()
	snap := tick(r.t, r.f)
	for _, e := range snap.Events {
		if e.Kind != EventStateChanged {
			continue
		}
		parts := strings.Split(e.Message, " -> ")
		from, ok1 := core.ParseAgentState(parts[0])
		to, ok2 := core.ParseAgentState(parts[len(parts)-1])
		if len(parts) != 2 || !ok1 || !ok2 {
			r.t.Fatalf("Malformed state event %q", e.Message)
		}
		r.seen[transition{from, to}] = true
	}
	return snap
}

func (r *recorder) until(limit int, id core.AgentID, want core.AgentState) Snapshot {
	r.t.Helper()
	for i := 0; i < limit; i++ {
		snap := r.tick()
		if agentView(r.t, snap, id).State == want {
			return snap
		}
	}
	r.t.Fatalf("Agent %d never reached %v", id, want)
	return Snapshot{}
}

func TestTransitionTable(t *testing.T) {
	if CanTransition(core.StateCharging, core.StateTaskComplete) {
		t.Error("CHARGING must not jump to TASK_COMPLETE")
	}
	if CanTransition(core.StateIdle, core.StateCharging) {
		t.Error("IDLE must not start charging on its own")
	}
	if CanTransition(core.StateBatteryDead, core.StateIdle) {
		t.Error("BATTERY_DEAD leaves only through a manual task")
	}
	for _, s := range core.AllStates() {
		if len(Transitions(s)) == 0 {
			t.Errorf("State %v has no exit", s)
		}
	}
}

func TestStateMachineClosure(t *testing.T) {
	seen := make(map[transition]bool)

	t.Run("tasks and charging", func(t *testing.T) {
		r := &recorder{t: t, f: newTestFleet(createLine(6, 1, 6)), seen: seen}
		mustSubmit(t, r.f.Spawn(3))
		r.tick()

		mustSubmit(t, r.f.AssignTask(core.Task{Agent: 0, Destination: 5}))
		r.until(30, 0, core.StateTaskComplete)

		mustSubmit(t, r.f.AssignTask(core.Task{Agent: 0, Destination: 6}))
		r.until(30, 0, core.StateCharging)

		mustSubmit(t, r.f.AssignTask(core.Task{Agent: 0, Destination: 4}))
		snap := r.tick()
		if a := agentView(t, snap, 0); a.State != core.StateCharging || !hasEvent(snap, EventTaskRejected, 0) {
			t.Fatalf("Charging agent accepted a task without override: %v", a.State)
		}

		mustSubmit(t, r.f.AssignTask(core.Task{Agent: 0, Destination: 4, Override: true}))
		snap = r.tick()
		if a := agentView(t, snap, 0); a.State != core.StateMoving {
			t.Fatalf("Override should interrupt charging, got %v", a.State)
		}
		r.until(30, 0, core.StateTaskComplete)

		mustSubmit(t, r.f.AssignTask(core.Task{Agent: 0, Destination: 6}))
		r.until(30, 0, core.StateCharging)
		r.until(30, 0, core.StateIdle)
	})

	t.Run("battery death and recovery", func(t *testing.T) {
		r := &recorder{t: t, f: newTestFleet(createLine(6, 1, 6)), seen: seen}
		mustSubmit(t, r.f.Spawn(6))
		r.tick()
		mustSubmit(t, r.f.AssignTask(core.Task{Agent: 0, Destination: 1}))
		r.tick()
		r.tick()
		mustSubmit(t, r.f.SetBattery(0, 0))
		snap := r.tick()
		dead := agentView(t, snap, 0)
		if dead.State != core.StateBatteryDead || dead.Vertex != 5 {
			t.Fatalf("Expected dead at 5, got %v at %d", dead.State, dead.Vertex)
		}

		if err := r.f.Check(AssignCommand(core.Task{Agent: 0, Destination: 6})); !errors.Is(err, ErrAgentBusy) {
			t.Errorf("Expected ErrAgentBusy without override, got %v", err)
		}
		if err := r.f.Check(AssignCommand(core.Task{Agent: 0, Destination: 3, Override: true})); !errors.Is(err, ErrNotCharger) {
			t.Errorf("Expected ErrNotCharger, got %v", err)
		}
		mustSubmit(t, r.f.AssignTask(core.Task{Agent: 0, Destination: 3, Override: true}))
		snap = r.tick()
		if a := agentView(t, snap, 0); a.State != core.StateBatteryDead {
			t.Fatalf("Dead agent accepted a non-charger task: %v", a.State)
		}

		mustSubmit(t, r.f.AssignTask(core.Task{Agent: 0, Destination: 6, Override: true}))
		snap = r.tick()
		a := agentView(t, snap, 0)
		if a.State != core.StateMoving || !a.Recovering || a.Battery != 0 {
			t.Fatalf("Expected recovering move at 0%%, got %v recovering=%v battery=%v", a.State, a.Recovering, a.Battery)
		}
		snap = r.until(10, 0, core.StateCharging)
		if a := agentView(t, snap, 0); a.Vertex != 6 {
			t.Errorf("Expected to charge at 6, got %d", a.Vertex)
		}
	})

	t.Run("waiting", func(t *testing.T) {
		r := &recorder{t: t, f: newTestFleet(createLine(5)), seen: seen}
		mustSubmit(t, r.f.Spawn(2))
		mustSubmit(t, r.f.Spawn(3))
		r.tick()
		mustSubmit(t, r.f.AssignTask(core.Task{Agent: 0, Destination: 5}))
		r.until(3, 0, core.StateWaiting)
		mustSubmit(t, r.f.AssignTask(core.Task{Agent: 1, Destination: 5}))
		r.until(5, 0, core.StateMoving)
	})

	t.Run("waiting agent dies", func(t *testing.T) {
		r := &recorder{t: t, f: newTestFleet(createLine(5)), seen: seen}
		mustSubmit(t, r.f.Spawn(2))
		mustSubmit(t, r.f.Spawn(3))
		r.tick()
		mustSubmit(t, r.f.AssignTask(core.Task{Agent: 0, Destination: 5}))
		r.until(3, 0, core.StateWaiting)
		mustSubmit(t, r.f.SetBattery(0, 0))
		snap := r.until(2, 0, core.StateBatteryDead)
		if a := agentView(t, snap, 0); a.Vertex != 2 {
			t.Errorf("Expected dead at 2, got %d", a.Vertex)
		}
	})

	for _, from := range core.AllStates() {
		for _, to := range Transitions(from) {
			if !seen[transition{from, to}] {
				t.Errorf("Transition %v -> %v never exercised", from, to)
			}
		}
	}
	for tr := range seen {
		if !CanTransition(tr.from, tr.to) {
			t.Errorf("Observed illegal transition %v -> %v", tr.from, tr.to)
		}
	}
}

func TestSetStateRejectsIllegal(t *testing.T) {
	f := newTestFleet(createLine(2))
	a := newAgent(0, 1, 100)
	if err := f.setState(a, core.StateCharging); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition, got %v", err)
	}
	if a.state != core.StateIdle {
		t.Errorf("State changed despite error: %v", a.state)
	}
}
