// Package algo implements route planning over the navigation graph.
package algo

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
)

// ErrNoPath is returned when the goal cannot be reached under the given
// exclusions. It is recoverable: callers retry on a later tick.
var ErrNoPath = errors.New("no path")

// CostTolerance for floating-point cost comparison.
const CostTolerance = 1e-9

func costEqual(a, b float64) bool {
	return math.Abs(a-b) <= CostTolerance
}

// searchNode for priority queue.
type searchNode struct {
	v     core.VertexID
	g     float64   // Cost so far
	path  core.Path // Vertices from start to v
	index int       // heap index
}

// before orders nodes by cost, then by vertex sequence.
func (n *searchNode) before(o *searchNode) bool {
	if !costEqual(n.g, o.g) {
		return n.g < o.g
	}
	return n.path.Less(o.path)
}

// searchHeap implements heap.Interface.
type searchHeap []*searchNode

func (h searchHeap) Len() int           { return len(h) }
func (h searchHeap) Less(i, j int) bool { return h[i].before(h[j]) }
func (h searchHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *searchHeap) Push(x any) {
	n := x.(*searchNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *searchHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// FindPath returns the cheapest route from start to goal that avoids the
// blocked edges. Among equally cheap routes the one with the lower vertex id
// at the first point of difference wins. With uniform edge costs this is the
// breadth-first shortest path.
func FindPath(g *core.Graph, start, goal core.VertexID, blocked core.EdgeSet) (core.Path, error) {
	if !g.Has(goal) {
		return nil, fmt.Errorf("find path to %d: %w", goal, core.ErrUnknownVertex)
	}
	return search(g, start, blocked, func(v core.VertexID) bool { return v == goal })
}

// NearestCharger returns the charger with the cheapest route from the given
// vertex, together with that route.
func NearestCharger(g *core.Graph, from core.VertexID, blocked core.EdgeSet) (core.VertexID, core.Path, error) {
	path, err := search(g, from, blocked, g.IsCharger)
	if err != nil {
		return 0, nil, err
	}
	last, _ := path.Last()
	return last, path, nil
}

// search runs uniform-cost search from start until a vertex satisfying isGoal
// is settled.
func search(g *core.Graph, start core.VertexID, blocked core.EdgeSet, isGoal func(core.VertexID) bool) (core.Path, error) {
	if !g.Has(start) {
		return nil, fmt.Errorf("search from %d: %w", start, core.ErrUnknownVertex)
	}

	open := &searchHeap{}
	heap.Init(open)
	heap.Push(open, &searchNode{v: start, path: core.Path{start}})

	best := map[core.VertexID]*searchNode{}
	settled := make(map[core.VertexID]bool)

	for open.Len() > 0 {
		current := heap.Pop(open).(*searchNode)
		if settled[current.v] {
			continue
		}
		settled[current.v] = true

		if isGoal(current.v) {
			return current.path, nil
		}

		neighbors, err := g.Neighbors(current.v)
		if err != nil {
			return nil, err
		}
		for _, next := range neighbors {
			if settled[next] {
				continue
			}
			key := core.MakeEdgeKey(current.v, next)
			if blocked.Has(key) {
				continue
			}
			edge, _ := g.EdgeBetween(current.v, next)

			path := make(core.Path, len(current.path)+1)
			copy(path, current.path)
			path[len(current.path)] = next
			node := &searchNode{v: next, g: current.g + edge.Cost, path: path}

			if prev, ok := best[next]; ok && !node.before(prev) {
				continue
			}
			best[next] = node
			heap.Push(open, node)
		}
	}

	return nil, ErrNoPath
}

// Alternatives returns up to k distinct routes from start to goal. Each route
// after the first is planned with the edges of all previous routes blocked.
func Alternatives(g *core.Graph, start, goal core.VertexID, k int) []core.Path {
	var paths []core.Path
	blocked := core.NewEdgeSet()
	for len(paths) < k {
		path, err := FindPath(g, start, goal, blocked)
		if err != nil {
			break
		}
		paths = append(paths, path)
		edges := path.Edges()
		if len(edges) == 0 {
			break
		}
		for _, e := range edges {
			blocked.Add(e)
		}
	}
	return paths
}

// FreeRoute prefers a route that crosses none of the occupied edges and falls
// back to the cheapest route when every route is contested.
func FreeRoute(g *core.Graph, start, goal core.VertexID, occupied core.EdgeSet) (core.Path, error) {
	if len(occupied) > 0 {
		if path, err := FindPath(g, start, goal, occupied); err == nil {
			return path, nil
		}
	}
	return FindPath(g, start, goal, nil)
}
