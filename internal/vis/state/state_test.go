package state

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
	"github.com/elektrokombinacija/fleet-traffic/internal/sim"
)

// createLine creates vertices 1..n one unit apart on the x axis.
func createLine(n int) *core.Graph {
	g := core.NewGraph()
	for i := 1; i <= n; i++ {
		g.AddVertex(core.Vertex{ID: core.VertexID(i), Pos: core.Point{X: float64(i - 1)}})
	}
	for i := 1; i < n; i++ {
		if err := g.AddEdge(core.VertexID(i), core.VertexID(i+1), 0); err != nil {
			panic(err)
		}
	}
	return g
}

func newTestState(t *testing.T) *State {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := fleet.New(createLine(4), fleet.DefaultParams(), fleet.WithLogger(log))
	s := NewState(f, sim.NewSimulator(f, sim.DefaultConfig(), log))
	s.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func tick(t *testing.T, s *State) {
	t.Helper()
	if _, err := s.Fleet.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	s.Refresh()
}

func lastNote(s *State) Notification {
	notes := s.Notifications()
	if len(notes) == 0 {
		return Notification{}
	}
	return notes[len(notes)-1]
}

func TestClickVertexSpawns(t *testing.T) {
	s := newTestState(t)
	s.ClickVertex(1)
	if n := lastNote(s); n.Text != "Spawning robot at vertex 1" || n.Error {
		t.Errorf("Expected spawn notification, got %+v", n)
	}
	tick(t, s)
	if a, ok := s.Snapshot.Agent(0); !ok || a.Vertex != 1 {
		t.Fatalf("Expected agent 0 at vertex 1, got %+v (found %v)", a, ok)
	}

	s.ClickVertex(1)
	if n := lastNote(s); n.Text != "Vertex is occupied by another robot" || !n.Error {
		t.Errorf("Expected occupied notification, got %+v", n)
	}
}

func TestSelectAndAssign(t *testing.T) {
	s := newTestState(t)
	s.ClickVertex(1)
	tick(t, s)

	a, _ := s.Snapshot.Agent(0)
	s.ClickAgent(a)
	if s.Selected != 0 {
		t.Fatalf("Expected agent 0 selected, got %d", s.Selected)
	}

	s.ClickVertex(4)
	if s.Selected != fleet.NoAgent {
		t.Errorf("Expected selection cleared after assigning, got %d", s.Selected)
	}
	if n := lastNote(s); n.Text != "Assigned Robot 0 to vertex 4" {
		t.Errorf("Expected assignment notification, got %q", n.Text)
	}

	tick(t, s)
	a, _ = s.Snapshot.Agent(0)
	if a.State != core.StateMoving {
		t.Fatalf("Expected MOVING after assignment, got %v", a.State)
	}

	s.ClickAgent(a)
	if s.Selected != fleet.NoAgent {
		t.Error("Expected moving agent not to be selectable")
	}
	if n := lastNote(s); n.Text != "Robot 0 is MOVING" {
		t.Errorf("Expected busy notification, got %q", n.Text)
	}

	route := s.Route(a)
	// Position, then vertices 2, 3 and 4
	if len(route) != 4 {
		t.Fatalf("Expected 4 route points, got %d", len(route))
	}
	if last := route[len(route)-1]; last != (core.Point{X: 3}) {
		t.Errorf("Expected route to end at vertex 4, got %+v", last)
	}
}

func TestClickAgentRules(t *testing.T) {
	s := newTestState(t)
	dead := fleet.AgentView{ID: 3, State: core.StateBatteryDead}

	s.ClickAgent(dead)
	if s.Selected != fleet.NoAgent {
		t.Error("Expected depleted agent not to be selectable")
	}
	if n := lastNote(s); n.Text != "Robot 3 has no battery - needs charging" || !n.Error {
		t.Errorf("Expected battery notification, got %+v", n)
	}

	s.Override = true
	s.ClickAgent(dead)
	if s.Selected != 3 {
		t.Errorf("Expected override to select agent 3, got %d", s.Selected)
	}
	s.ClickAgent(dead)
	if s.Selected != fleet.NoAgent {
		t.Errorf("Expected second click to deselect, got %d", s.Selected)
	}
}

func TestClickHitTest(t *testing.T) {
	s := newTestState(t)
	s.Click(core.Point{X: 1.9, Y: 0.1}, 0.2, 0.5)
	tick(t, s)
	if a, ok := s.Snapshot.Agent(0); !ok || a.Vertex != 3 {
		t.Fatalf("Expected click near vertex 3 to spawn there, got %+v", a)
	}

	s.Click(core.Point{X: 2.05}, 0.2, 0.5)
	if s.Selected != 0 {
		t.Errorf("Expected click on agent to select it, got %d", s.Selected)
	}

	s.Click(core.Point{X: 10, Y: 10}, 0.2, 0.5)
	if s.Selected != fleet.NoAgent {
		t.Error("Expected click on empty space to clear selection")
	}
}

func TestRefreshReportsFailures(t *testing.T) {
	s := newTestState(t)
	if err := s.Fleet.Spawn(2); err != nil {
		t.Fatal(err)
	}
	if err := s.Fleet.Spawn(2); err != nil {
		t.Fatal(err)
	}
	tick(t, s)

	n := lastNote(s)
	if !n.Error || !strings.Contains(n.Text, "occupied") {
		t.Errorf("Expected rejected spawn notification, got %+v", n)
	}

	// Same tick again must not duplicate it
	count := len(s.Notifications())
	s.Refresh()
	if got := len(s.Notifications()); got != count {
		t.Errorf("Expected %d notifications after repeat refresh, got %d", count, got)
	}
}

func TestNotificationsExpire(t *testing.T) {
	s := newTestState(t)
	start := s.now()
	s.Notify("hello")
	if len(s.Notifications()) != 1 {
		t.Fatal("Expected one notification")
	}
	s.now = func() time.Time { return start.Add(NotificationTTL + time.Millisecond) }
	if got := len(s.Notifications()); got != 0 {
		t.Errorf("Expected notification to expire, got %d", got)
	}
}

func TestPauseAndStep(t *testing.T) {
	s := newTestState(t)
	s.Step()
	if s.Fleet.Snapshot().Tick != 0 {
		t.Error("Expected step to be ignored while running")
	}

	s.TogglePause()
	if !s.Paused() {
		t.Fatal("Expected paused")
	}
	s.Step()
	if got := s.Fleet.Snapshot().Tick; got != 1 {
		t.Errorf("Expected tick 1 after step, got %d", got)
	}
	s.TogglePause()
	if s.Paused() {
		t.Error("Expected resumed")
	}
}
