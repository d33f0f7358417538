package algo

import (
	"errors"
	"testing"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
)

// createGrid creates a simple n x n grid graph with unit edges.
func createGrid(n int) *core.Graph {
	g := core.NewGraph()

	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			id := core.VertexID(y*n + x)
			g.AddVertex(core.Vertex{
				ID:  id,
				Pos: core.Point{X: float64(x), Y: float64(y)},
			})
		}
	}

	// 4-connected grid
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

// createLine creates vertices 1..n on the x axis joined in order.
func createLine(n int) *core.Graph {
	g := core.NewGraph()
	for i := 1; i <= n; i++ {
		g.AddVertex(core.Vertex{ID: core.VertexID(i), Pos: core.Point{X: float64(i - 1)}})
	}
	for i := 1; i < n; i++ {
		mustEdge(g, core.VertexID(i), core.VertexID(i+1))
	}
	return g
}

func mustEdge(g *core.Graph, a, b core.VertexID) {
	if err := g.AddEdge(a, b, 0); err != nil {
		panic(err)
	}
}

func TestFindPathLine(t *testing.T) {
	g := createLine(4)

	path, err := FindPath(g, 1, 4, nil)
	if err != nil {
		t.Fatalf("Expected path, got %v", err)
	}
	want := core.Path{1, 2, 3, 4}
	if !path.Equal(want) {
		t.Errorf("Expected %v, got %v", want, path)
	}

	path, err = FindPath(g, 3, 3, nil)
	if err != nil || !path.Equal(core.Path{3}) {
		t.Errorf("Expected [3], got %v (%v)", path, err)
	}
}

func TestFindPathTieBreak(t *testing.T) {
	// 0 -> 4 on a 3x3 grid has two shortest routes: 0-1-4 and 0-3-4.
	g := createGrid(3)

	path, err := FindPath(g, 0, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !path.Equal(core.Path{0, 1, 4}) {
		t.Errorf("Expected [0 1 4], got %v", path)
	}

	// Corner to corner: six shortest routes, lexicographically smallest first.
	path, err = FindPath(g, 0, 8, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !path.Equal(core.Path{0, 1, 2, 5, 8}) {
		t.Errorf("Expected [0 1 2 5 8], got %v", path)
	}

	// Same result from the other side of the tie.
	path, err = FindPath(g, 8, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !path.Equal(core.Path{8, 5, 2, 1, 0}) {
		t.Errorf("Expected [8 5 2 1 0], got %v", path)
	}
}

func TestFindPathBlocked(t *testing.T) {
	g := createGrid(3)

	blocked := core.NewEdgeSet(core.MakeEdgeKey(0, 1))
	path, err := FindPath(g, 0, 2, blocked)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range path.Edges() {
		if blocked.Has(e) {
			t.Errorf("Path %v uses blocked edge %v", path, e)
		}
	}
	if len(path) != 5 {
		t.Errorf("Expected detour of 4 edges, got %v", path)
	}

	line := createLine(4)
	_, err = FindPath(line, 1, 4, core.NewEdgeSet(core.MakeEdgeKey(2, 3)))
	if !errors.Is(err, ErrNoPath) {
		t.Errorf("Expected ErrNoPath, got %v", err)
	}
}

func TestFindPathWeighted(t *testing.T) {
	// Square 1-2-4 and 1-3-4 where the 1-3 leg is cheap.
	g := core.NewGraph()
	for id := core.VertexID(1); id <= 4; id++ {
		g.AddVertex(core.Vertex{ID: id})
	}
	if err := g.AddEdge(1, 2, 5); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(2, 4, 1); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(1, 3, 1); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(3, 4, 1); err != nil {
		t.Fatal(err)
	}

	path, err := FindPath(g, 1, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !path.Equal(core.Path{1, 3, 4}) {
		t.Errorf("Expected cheap route [1 3 4], got %v", path)
	}
}

func TestFindPathUnknownVertex(t *testing.T) {
	g := createLine(3)
	if _, err := FindPath(g, 1, 42, nil); !errors.Is(err, core.ErrUnknownVertex) {
		t.Errorf("Expected ErrUnknownVertex, got %v", err)
	}
	if _, err := FindPath(g, 42, 1, nil); !errors.Is(err, core.ErrUnknownVertex) {
		t.Errorf("Expected ErrUnknownVertex, got %v", err)
	}
}

func TestFindPathDeterministic(t *testing.T) {
	g := createGrid(6)
	first, err := FindPath(g, 0, 35, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, err := FindPath(g, 0, 35, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !again.Equal(first) {
			t.Fatalf("Run %d: expected %v, got %v", i, first, again)
		}
	}
}

func TestNearestCharger(t *testing.T) {
	g := createLine(6)
	for _, id := range []core.VertexID{1, 6} {
		v := *g.MustVertex(id)
		v.IsCharger = true
		g.AddVertex(v)
	}

	charger, path, err := NearestCharger(g, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	if charger != 6 {
		t.Errorf("Expected charger 6, got %d", charger)
	}
	if !path.Equal(core.Path{4, 5, 6}) {
		t.Errorf("Expected [4 5 6], got %v", path)
	}

	// Equidistant chargers: tie broken toward the lower vertex sequence.
	even := createLine(5)
	for _, id := range []core.VertexID{1, 5} {
		v := *even.MustVertex(id)
		v.IsCharger = true
		even.AddVertex(v)
	}
	charger, path, err = NearestCharger(even, 3, core.NewEdgeSet())
	if err != nil {
		t.Fatal(err)
	}
	if charger != 1 || !path.Equal(core.Path{3, 2, 1}) {
		t.Errorf("Expected charger 1 via [3 2 1], got %d via %v", charger, path)
	}

	// Standing on a charger.
	charger, path, err = NearestCharger(g, 6, nil)
	if err != nil || charger != 6 || len(path) != 1 {
		t.Errorf("Expected own vertex, got %d %v %v", charger, path, err)
	}

	if _, _, err := NearestCharger(createLine(3), 1, nil); !errors.Is(err, ErrNoPath) {
		t.Errorf("Expected ErrNoPath without chargers, got %v", err)
	}
}

func TestAlternatives(t *testing.T) {
	g := createGrid(3)
	paths := Alternatives(g, 0, 8, 3)
	if len(paths) < 2 {
		t.Fatalf("Expected at least 2 alternatives, got %d", len(paths))
	}
	used := core.NewEdgeSet()
	for i, p := range paths {
		if p[0] != 0 || p[len(p)-1] != 8 {
			t.Errorf("Alternative %d has wrong endpoints: %v", i, p)
		}
		for _, e := range p.Edges() {
			if used.Has(e) {
				t.Errorf("Alternative %d reuses edge %v", i, e)
			}
		}
		for _, e := range p.Edges() {
			used.Add(e)
		}
	}

	if got := Alternatives(createLine(4), 1, 4, 3); len(got) != 1 {
		t.Errorf("Expected a single route on a line, got %d", len(got))
	}
}

func TestFreeRoute(t *testing.T) {
	g := createGrid(3)
	occupied := core.NewEdgeSet(core.MakeEdgeKey(0, 1))

	path, err := FreeRoute(g, 0, 2, occupied)
	if err != nil {
		t.Fatal(err)
	}
	if path.Equal(core.Path{0, 1, 2}) {
		t.Errorf("Expected route around occupied edge, got %v", path)
	}

	line := createLine(3)
	path, err = FreeRoute(line, 1, 3, core.NewEdgeSet(core.MakeEdgeKey(1, 2)))
	if err != nil || !path.Equal(core.Path{1, 2, 3}) {
		t.Errorf("Expected fallback to [1 2 3], got %v (%v)", path, err)
	}
}

func TestFindFirstConflict(t *testing.T) {
	e23 := core.MakeEdgeKey(2, 3)

	t.Run("none", func(t *testing.T) {
		fps := map[core.AgentID]Footprint{
			0: {Vertex: 1},
			1: {Vertex: 3, Edge: &e23},
		}
		if c := FindFirstConflict(fps); c != nil {
			t.Errorf("Expected no conflict, got %+v", c)
		}
	})

	t.Run("vertex", func(t *testing.T) {
		fps := map[core.AgentID]Footprint{
			0: {Vertex: 2},
			1: {Vertex: 2},
		}
		c := FindFirstConflict(fps)
		if c == nil || c.IsEdge || c.Vertex != 2 || c.Agent1 != 0 || c.Agent2 != 1 {
			t.Errorf("Expected vertex conflict at 2, got %+v", c)
		}
	})

	t.Run("edge", func(t *testing.T) {
		fps := map[core.AgentID]Footprint{
			0: {Vertex: 2, Edge: &e23},
			1: {Vertex: 3, Edge: &e23},
		}
		c := FindFirstConflict(fps)
		if c == nil || !c.IsEdge || c.Edge != e23 {
			t.Errorf("Expected edge conflict on 2-3, got %+v", c)
		}
	})
}
