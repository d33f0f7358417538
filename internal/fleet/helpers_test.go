package fleet

import (
	"io"
	"log/slog"
	"testing"

	"github.com/elektrokombinacija/fleet-traffic/internal/algo"
	"github.com/elektrokombinacija/fleet-traffic/internal/core"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createLine creates vertices 1..n one unit apart, joined in order.
func createLine(n int, chargers ...core.VertexID) *core.Graph {
	g := core.NewGraph()
	isCharger := make(map[core.VertexID]bool)
	for _, c := range chargers {
		isCharger[c] = true
	}
	for i := 1; i <= n; i++ {
		id := core.VertexID(i)
		g.AddVertex(core.Vertex{ID: id, Pos: core.Point{X: float64(i - 1)}, IsCharger: isCharger[id]})
	}
	for i := 1; i < n; i++ {
		mustEdge(g, core.VertexID(i), core.VertexID(i+1))
	}
	return g
}

// createBypass is the 1-2-3-4 corridor with vertex 5 joining 2 and 3.
func createBypass() *core.Graph {
	g := createLine(4)
	g.AddVertex(core.Vertex{ID: 5, Pos: core.Point{X: 1.5, Y: 1}})
	mustEdge(g, 2, 5)
	mustEdge(g, 5, 3)
	return g
}

// createGrid creates an n x n grid with ids y*n+x.
func createGrid(n int, chargers ...core.VertexID) *core.Graph {
	g := core.NewGraph()
	isCharger := make(map[core.VertexID]bool)
	for _, c := range chargers {
		isCharger[c] = true
	}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			id := core.VertexID(y*n + x)
			g.AddVertex(core.Vertex{ID: id, Pos: core.Point{X: float64(x), Y: float64(y)}, IsCharger: isCharger[id]})
		}
	}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			id := core.VertexID(y*n + x)
			if x < n-1 {
				mustEdge(g, id, id+1)
			}
			if y < n-1 {
				mustEdge(g, id, id+core.VertexID(n))
			}
		}
	}
	return g
}

func mustEdge(g *core.Graph, a, b core.VertexID) {
	if err := g.AddEdge(a, b, 0); err != nil {
		panic(err)
	}
}

func newTestFleet(g *core.Graph) *Fleet {
	return New(g, DefaultParams(), WithLogger(discardLogger()))
}

// tick advances one tick and checks the safety invariants.
func tick(t *testing.T, f *Fleet) Snapshot {
	t.Helper()
	snap, err := f.Tick()
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if c := algo.FindFirstConflict(snap.Footprints()); c != nil {
		t.Fatalf("Tick %d: agents %d and %d share %+v", snap.Tick, c.Agent1, c.Agent2, c)
	}
	if err := f.table.Verify(); err != nil {
		t.Fatalf("Tick %d: %v", snap.Tick, err)
	}
	for _, a := range snap.Agents {
		if a.Battery < 0 || a.Battery > 100 {
			t.Fatalf("Tick %d: agent %d battery %v out of range", snap.Tick, a.ID, a.Battery)
		}
	}
	return snap
}

func mustSubmit(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
}

func agentView(t *testing.T, snap Snapshot, id core.AgentID) AgentView {
	t.Helper()
	a, ok := snap.Agent(id)
	if !ok {
		t.Fatalf("Agent %d missing from snapshot at tick %d", id, snap.Tick)
	}
	return a
}

func hasEvent(snap Snapshot, kind EventKind, id core.AgentID) bool {
	for _, e := range snap.Events {
		if e.Kind == kind && e.Agent == id {
			return true
		}
	}
	return false
}

// runUntil ticks until cond holds or limit ticks pass.
func runUntil(t *testing.T, f *Fleet, limit int, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	var snap Snapshot
	for i := 0; i < limit; i++ {
		snap = tick(t, f)
		if cond(snap) {
			return snap
		}
	}
	t.Fatalf("Condition not reached within %d ticks (tick %d)", limit, snap.Tick)
	return snap
}
