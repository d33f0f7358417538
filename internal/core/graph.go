package core

import (
	"fmt"
	"math"
	"sort"
)

// Point is a 2D position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance between two points.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Lerp interpolates between p and q at fraction t.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{X: p.X + (q.X-p.X)*t, Y: p.Y + (q.Y-p.Y)*t}
}

// VertexID is a unique vertex identifier.
type VertexID int

// Vertex is a location in the navigation graph.
type Vertex struct {
	ID        VertexID
	Name      string
	Pos       Point
	IsCharger bool
}

// EdgeKey identifies an undirected edge. A is always the lower id.
type EdgeKey struct {
	A VertexID `json:"a"`
	B VertexID `json:"b"`
}

// MakeEdgeKey normalizes an endpoint pair.
func MakeEdgeKey(u, v VertexID) EdgeKey {
	if u > v {
		u, v = v, u
	}
	return EdgeKey{A: u, B: v}
}

// Other returns the endpoint opposite to v.
func (k EdgeKey) Other(v VertexID) VertexID {
	if v == k.A {
		return k.B
	}
	return k.A
}

// Has reports whether v is an endpoint.
func (k EdgeKey) Has(v VertexID) bool {
	return k.A == v || k.B == v
}

func (k EdgeKey) String() string {
	return fmt.Sprintf("%d-%d", k.A, k.B)
}

// Less orders edges by (A, B).
func (k EdgeKey) Less(o EdgeKey) bool {
	if k.A != o.A {
		return k.A < o.A
	}
	return k.B < o.B
}

// Edge is an undirected lane between two vertices.
type Edge struct {
	Key  EdgeKey
	Cost float64 // Traversal cost, Euclidean length unless given
}

// EdgeSet is a set of undirected edges.
type EdgeSet map[EdgeKey]struct{}

// NewEdgeSet builds a set from keys.
func NewEdgeSet(keys ...EdgeKey) EdgeSet {
	s := make(EdgeSet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Add inserts a key.
func (s EdgeSet) Add(k EdgeKey) { s[k] = struct{}{} }

// Has reports membership. A nil set is empty.
func (s EdgeSet) Has(k EdgeKey) bool {
	_, ok := s[k]
	return ok
}

// Clone copies the set.
func (s EdgeSet) Clone() EdgeSet {
	c := make(EdgeSet, len(s)+1)
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// Sorted returns the keys in (A, B) order.
func (s EdgeSet) Sorted() []EdgeKey {
	keys := make([]EdgeKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Graph is the navigation graph. It is built once and read-only afterwards,
// so it can be shared between goroutines without locking.
type Graph struct {
	vertices map[VertexID]*Vertex
	edges    map[EdgeKey]Edge
	adj      map[VertexID][]VertexID
	ids      []VertexID
	chargers []VertexID
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		vertices: make(map[VertexID]*Vertex),
		edges:    make(map[EdgeKey]Edge),
		adj:      make(map[VertexID][]VertexID),
	}
}

// AddVertex adds or replaces a vertex.
func (g *Graph) AddVertex(v Vertex) {
	if _, ok := g.vertices[v.ID]; !ok {
		g.ids = insertSorted(g.ids, v.ID)
	}
	vc := v
	g.vertices[v.ID] = &vc
	g.rebuildChargers()
}

// AddEdge adds an undirected edge. A non-positive cost means Euclidean length.
func (g *Graph) AddEdge(u, v VertexID, cost float64) error {
	pu, ok := g.vertices[u]
	if !ok {
		return fmt.Errorf("edge %d-%d: %w %d", u, v, ErrUnknownVertex, u)
	}
	pv, ok := g.vertices[v]
	if !ok {
		return fmt.Errorf("edge %d-%d: %w %d", u, v, ErrUnknownVertex, v)
	}
	if u == v {
		return fmt.Errorf("edge %d-%d: self loop", u, v)
	}
	if cost <= 0 {
		cost = pu.Pos.Dist(pv.Pos)
	}
	key := MakeEdgeKey(u, v)
	if _, dup := g.edges[key]; !dup {
		g.adj[u] = insertSorted(g.adj[u], v)
		g.adj[v] = insertSorted(g.adj[v], u)
	}
	g.edges[key] = Edge{Key: key, Cost: cost}
	return nil
}

func (g *Graph) rebuildChargers() {
	g.chargers = g.chargers[:0]
	for _, id := range g.ids {
		if g.vertices[id].IsCharger {
			g.chargers = append(g.chargers, id)
		}
	}
}

func insertSorted(ids []VertexID, id VertexID) []VertexID {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if i < len(ids) && ids[i] == id {
		return ids
	}
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}

// Vertex looks up a vertex.
func (g *Graph) Vertex(id VertexID) (*Vertex, bool) {
	v, ok := g.vertices[id]
	return v, ok
}

// MustVertex looks up a vertex and panics if it does not exist.
func (g *Graph) MustVertex(id VertexID) *Vertex {
	v, ok := g.vertices[id]
	if !ok {
		panic(fmt.Sprintf("%v %d", ErrUnknownVertex, id))
	}
	return v
}

// Has reports whether the vertex exists.
func (g *Graph) Has(id VertexID) bool {
	_, ok := g.vertices[id]
	return ok
}

// Neighbors returns adjacent vertices in ascending id order.
func (g *Graph) Neighbors(id VertexID) ([]VertexID, error) {
	if !g.Has(id) {
		return nil, fmt.Errorf("neighbors: %w %d", ErrUnknownVertex, id)
	}
	return g.adj[id], nil
}

// EdgeBetween returns the edge joining a and b, if any.
func (g *Graph) EdgeBetween(a, b VertexID) (Edge, bool) {
	e, ok := g.edges[MakeEdgeKey(a, b)]
	return e, ok
}

// IsCharger reports whether id is a charging station.
func (g *Graph) IsCharger(id VertexID) bool {
	v, ok := g.vertices[id]
	return ok && v.IsCharger
}

// Chargers returns all charger vertices in ascending order.
func (g *Graph) Chargers() []VertexID {
	return append([]VertexID(nil), g.chargers...)
}

// VertexIDs returns all vertex ids in ascending order.
func (g *Graph) VertexIDs() []VertexID {
	return append([]VertexID(nil), g.ids...)
}

// Edges returns all edges ordered by key.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out
}

// NumVertices returns the vertex count.
func (g *Graph) NumVertices() int { return len(g.vertices) }

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Bounds returns the bounding box of all vertex positions.
func (g *Graph) Bounds() (lo, hi Point) {
	first := true
	for _, v := range g.vertices {
		if first {
			lo, hi = v.Pos, v.Pos
			first = false
			continue
		}
		lo.X = math.Min(lo.X, v.Pos.X)
		lo.Y = math.Min(lo.Y, v.Pos.Y)
		hi.X = math.Max(hi.X, v.Pos.X)
		hi.Y = math.Max(hi.Y, v.Pos.Y)
	}
	return lo, hi
}

// Nearest returns the vertex closest to p within radius.
func (g *Graph) Nearest(p Point, radius float64) (VertexID, bool) {
	best, bestD := VertexID(0), math.Inf(1)
	for _, id := range g.ids {
		d := g.vertices[id].Pos.Dist(p)
		if d <= radius && d < bestD {
			best, bestD = id, d
		}
	}
	return best, !math.IsInf(bestD, 1)
}
