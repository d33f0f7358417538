// Package state manages the visualization state.
package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
	"github.com/elektrokombinacija/fleet-traffic/internal/sim"
)

// NotificationTTL is how long a notification stays on screen.
const NotificationTTL = 3 * time.Second

// Notification is a short message for the operator.
type Notification struct {
	Text    string
	Error   bool
	Expires time.Time
}

// State holds all visualization state.
type State struct {
	Fleet    *fleet.Fleet
	Sim      *sim.Simulator
	Snapshot fleet.Snapshot

	// Agent picked for the next task, fleet.NoAgent when none
	Selected core.AgentID

	// Send the next task even to charging or depleted agents
	Override bool

	notes    []Notification
	lastTick uint64
	now      func() time.Time
}

// NewState creates a new visualization state.
func NewState(f *fleet.Fleet, s *sim.Simulator) *State {
	return &State{
		Fleet:    f,
		Sim:      s,
		Snapshot: f.Snapshot(),
		Selected: fleet.NoAgent,
		now:      time.Now,
	}
}

// Refresh pulls the latest snapshot and turns failure events into
// notifications.
func (s *State) Refresh() {
	snap := s.Fleet.Snapshot()
	if snap.Tick != s.lastTick {
		for _, e := range snap.Events {
			if e.Kind.Notification() {
				s.notify(e.Message, true)
			}
		}
		s.lastTick = snap.Tick
	}
	s.Snapshot = snap

	if s.Selected != fleet.NoAgent {
		if _, ok := snap.Agent(s.Selected); !ok {
			s.Selected = fleet.NoAgent
		}
	}
}

// Notify shows an informational message.
func (s *State) Notify(format string, args ...any) {
	s.notify(fmt.Sprintf(format, args...), false)
}

func (s *State) notify(text string, isErr bool) {
	s.notes = append(s.notes, Notification{Text: text, Error: isErr, Expires: s.now().Add(NotificationTTL)})
}

// Notifications returns the messages still on screen, newest last.
func (s *State) Notifications() []Notification {
	now := s.now()
	live := s.notes[:0]
	for _, n := range s.notes {
		if n.Expires.After(now) {
			live = append(live, n)
		}
	}
	s.notes = live
	return append([]Notification(nil), live...)
}

// AgentAt finds the agent drawn within radius of p. Later agents are drawn
// on top, so they win.
func (s *State) AgentAt(p core.Point, radius float64) (fleet.AgentView, bool) {
	for i := len(s.Snapshot.Agents) - 1; i >= 0; i-- {
		a := s.Snapshot.Agents[i]
		if a.Pos.Dist(p) <= radius {
			return a, true
		}
	}
	return fleet.AgentView{}, false
}

// Click handles a primary click at world point p. Clicking an agent selects
// it, clicking a vertex spawns an agent there or sends the selected agent.
func (s *State) Click(p core.Point, agentRadius, vertexRadius float64) {
	if a, ok := s.AgentAt(p, agentRadius); ok {
		s.ClickAgent(a)
		return
	}
	if v, ok := s.Fleet.Graph().Nearest(p, vertexRadius); ok {
		s.ClickVertex(v)
		return
	}
	s.Selected = fleet.NoAgent
}

// ClickAgent selects an agent that can take a task.
func (s *State) ClickAgent(a fleet.AgentView) {
	if s.Selected == a.ID {
		s.Selected = fleet.NoAgent
		return
	}
	switch {
	case s.Override:
	case a.State == core.StateBatteryDead:
		s.notify(fmt.Sprintf("Robot %d has no battery - needs charging", a.ID), true)
		return
	case a.State != core.StateIdle && a.State != core.StateTaskComplete:
		s.Notify("Robot %d is %s", a.ID, a.State)
		return
	}
	s.Selected = a.ID
	s.Notify("Selected Robot %d", a.ID)
}

// ClickVertex spawns an agent at v, or assigns v to the selected agent.
func (s *State) ClickVertex(v core.VertexID) {
	if s.Selected == fleet.NoAgent {
		cmd := fleet.SpawnCommand(v)
		if err := s.submit(cmd); err != nil {
			if errors.Is(err, fleet.ErrVertexOccupied) {
				s.notify("Vertex is occupied by another robot", true)
			} else {
				s.notify(err.Error(), true)
			}
			return
		}
		s.Notify("Spawning robot at vertex %d", v)
		return
	}

	id := s.Selected
	s.Selected = fleet.NoAgent
	cmd := fleet.AssignCommand(core.Task{Agent: id, Destination: v, Override: s.Override})
	if err := s.submit(cmd); err != nil {
		s.notify(err.Error(), true)
		return
	}
	s.Notify("Assigned Robot %d to vertex %d", id, v)
}

func (s *State) submit(cmd fleet.Command) error {
	if err := s.Fleet.Check(cmd); err != nil {
		return err
	}
	return s.Fleet.Submit(cmd)
}

// Paused reports whether ticking is stopped.
func (s *State) Paused() bool {
	return s.Sim != nil && s.Sim.Paused()
}

// TogglePause pauses or resumes the simulation.
func (s *State) TogglePause() {
	if s.Sim == nil {
		return
	}
	if s.Sim.Paused() {
		s.Sim.Resume()
	} else {
		s.Sim.Pause()
	}
}

// Step advances one tick while paused.
func (s *State) Step() {
	if s.Sim == nil || !s.Sim.Paused() {
		return
	}
	if _, err := s.Sim.Step(); err != nil {
		s.notify(err.Error(), true)
	}
}

// Route returns the world points from the agent to its destination.
func (s *State) Route(a fleet.AgentView) []core.Point {
	if len(a.Path) == 0 && !a.OnEdge {
		return nil
	}
	g := s.Fleet.Graph()
	pts := []core.Point{a.Pos}
	if a.OnEdge {
		pts = append(pts, g.MustVertex(a.To).Pos)
	}
	for _, v := range a.Path {
		pts = append(pts, g.MustVertex(v).Pos)
	}
	return pts
}
