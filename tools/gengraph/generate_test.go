package main

import (
	"reflect"
	"testing"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
)

func TestGenerateDeterministic(t *testing.T) {
	p := GraphParams{Seed: 7, Width: 6, Height: 5, Spacing: 1, ChargingDensity: 0.1, RemoveRatio: 0.3, NumAgents: 4, WithTasks: true}
	a, err := Generate(p)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := Generate(p)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("Expected identical output for the same seed")
	}
}

func TestGenerateKeepsConnectivity(t *testing.T) {
	p := GraphParams{Seed: 3, Width: 8, Height: 8, Spacing: 2, ChargingDensity: 0.05, RemoveRatio: 0.9, NumAgents: 10}
	file, err := Generate(p)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	inst, err := file.Instance()
	if err != nil {
		t.Fatalf("Generated file does not load: %v", err)
	}
	g := inst.Graph

	if !connected(g, core.NewEdgeSet()) {
		t.Error("Expected generated graph to stay connected")
	}
	// A connected graph on 64 vertices needs at least 63 lanes, a full grid has 112
	if g.NumEdges() < 63 || g.NumEdges() >= 112 {
		t.Errorf("Expected lanes removed down to a spanning set, got %d", g.NumEdges())
	}
	if len(g.Chargers()) == 0 {
		t.Error("Expected at least one charger")
	}
	if len(inst.Agents) != 10 {
		t.Errorf("Expected 10 agents, got %d", len(inst.Agents))
	}
	for _, a := range inst.Agents {
		if a.Destination != nil {
			t.Error("Expected no destinations without WithTasks")
		}
	}
}

func TestGenerateTooManyAgents(t *testing.T) {
	if _, err := Generate(GraphParams{Width: 2, Height: 2, NumAgents: 5}); err == nil {
		t.Error("Expected error for more agents than vertices")
	}
}

func TestConnected(t *testing.T) {
	g := core.NewGraph()
	for i := 1; i <= 3; i++ {
		g.AddVertex(core.Vertex{ID: core.VertexID(i), Pos: core.Point{X: float64(i)}})
	}
	if err := g.AddEdge(1, 2, 0); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(2, 3, 0); err != nil {
		t.Fatal(err)
	}
	if !connected(g, core.NewEdgeSet()) {
		t.Error("Expected line to be connected")
	}
	if connected(g, core.NewEdgeSet(core.MakeEdgeKey(2, 3))) {
		t.Error("Expected removing 2-3 to disconnect vertex 3")
	}
}
