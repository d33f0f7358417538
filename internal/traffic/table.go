// Package traffic keeps the vertex and edge reservations that stop two
// agents from sharing a location or a lane.
package traffic

import (
	"errors"
	"fmt"
	"sort"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
)

// ErrInvariant marks a reservation state that can only come from a
// programming error. Callers must stop rather than continue with it.
var ErrInvariant = errors.New("reservation invariant violated")

// Resource names a reservable vertex or edge.
type Resource struct {
	Vertex core.VertexID
	Edge   core.EdgeKey
	IsEdge bool
}

// VertexResource wraps a vertex.
func VertexResource(v core.VertexID) Resource { return Resource{Vertex: v} }

// EdgeResource wraps an edge.
func EdgeResource(k core.EdgeKey) Resource { return Resource{Edge: k, IsEdge: true} }

func (r Resource) String() string {
	if r.IsEdge {
		return "edge " + r.Edge.String()
	}
	return fmt.Sprintf("vertex %d", r.Vertex)
}

// Holding is what one agent currently reserves.
type Holding struct {
	Vertex    core.VertexID
	HasVertex bool
	Edge      core.EdgeKey
	HasEdge   bool
}

// Table maps every reserved vertex and edge to its single holder.
// It is not safe for concurrent use; the owner serializes access.
type Table struct {
	vertices map[core.VertexID]core.AgentID
	edges    map[core.EdgeKey]core.AgentID
	agents   map[core.AgentID]*Holding
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		vertices: make(map[core.VertexID]core.AgentID),
		edges:    make(map[core.EdgeKey]core.AgentID),
		agents:   make(map[core.AgentID]*Holding),
	}
}

func (t *Table) holding(agent core.AgentID) *Holding {
	h, ok := t.agents[agent]
	if !ok {
		h = &Holding{}
		t.agents[agent] = h
	}
	return h
}

// TryReserveVertex grants v to agent if nobody else holds it.
func (t *Table) TryReserveVertex(agent core.AgentID, v core.VertexID) (bool, error) {
	if holder, ok := t.vertices[v]; ok {
		return holder == agent, nil
	}
	h := t.holding(agent)
	if h.HasVertex {
		return false, fmt.Errorf("%w: agent %d reserving vertex %d while holding vertex %d",
			ErrInvariant, agent, v, h.Vertex)
	}
	t.vertices[v] = agent
	h.Vertex, h.HasVertex = v, true
	return true, nil
}

// TryReserveEdge lets agent leave from towards to. The agent must hold from.
// The request is granted only if the edge and the far vertex are free or
// already the agent's. On grant the agent gives up from and holds the edge
// plus the far vertex, all in one step.
func (t *Table) TryReserveEdge(agent core.AgentID, from, to core.VertexID) (bool, error) {
	if holder, ok := t.vertices[from]; !ok || holder != agent {
		return false, fmt.Errorf("%w: agent %d leaving vertex %d it does not hold",
			ErrInvariant, agent, from)
	}
	h := t.holding(agent)
	key := core.MakeEdgeKey(from, to)
	if h.HasEdge && h.Edge != key {
		return false, fmt.Errorf("%w: agent %d reserving edge %v while holding edge %v",
			ErrInvariant, agent, key, h.Edge)
	}
	if holder, ok := t.edges[key]; ok && holder != agent {
		return false, nil
	}
	if holder, ok := t.vertices[to]; ok && holder != agent {
		return false, nil
	}

	delete(t.vertices, from)
	t.edges[key] = agent
	t.vertices[to] = agent
	h.Vertex, h.HasVertex = to, true
	h.Edge, h.HasEdge = key, true
	return true, nil
}

// Release drops agent's hold on r. Releasing something not held is a no-op.
func (t *Table) Release(agent core.AgentID, r Resource) {
	if r.IsEdge {
		t.ReleaseEdge(agent, r.Edge)
		return
	}
	t.ReleaseVertex(agent, r.Vertex)
}

// ReleaseVertex drops agent's hold on v, if any.
func (t *Table) ReleaseVertex(agent core.AgentID, v core.VertexID) {
	if holder, ok := t.vertices[v]; !ok || holder != agent {
		return
	}
	delete(t.vertices, v)
	if h := t.agents[agent]; h != nil && h.Vertex == v {
		h.HasVertex = false
	}
}

// ReleaseEdge drops agent's hold on k, if any.
func (t *Table) ReleaseEdge(agent core.AgentID, k core.EdgeKey) {
	if holder, ok := t.edges[k]; !ok || holder != agent {
		return
	}
	delete(t.edges, k)
	if h := t.agents[agent]; h != nil && h.Edge == k {
		h.HasEdge = false
	}
}

// ReleaseAll drops every hold of agent.
func (t *Table) ReleaseAll(agent core.AgentID) {
	h, ok := t.agents[agent]
	if !ok {
		return
	}
	if h.HasEdge {
		t.ReleaseEdge(agent, h.Edge)
	}
	if h.HasVertex {
		t.ReleaseVertex(agent, h.Vertex)
	}
	delete(t.agents, agent)
}

// IsVertexBlocked reports whether any agent holds v.
func (t *Table) IsVertexBlocked(v core.VertexID) bool {
	_, ok := t.vertices[v]
	return ok
}

// IsEdgeBlocked reports whether any agent holds the edge.
func (t *Table) IsEdgeBlocked(k core.EdgeKey) bool {
	_, ok := t.edges[k]
	return ok
}

// IsBlocked reports whether r is held.
func (t *Table) IsBlocked(r Resource) bool {
	if r.IsEdge {
		return t.IsEdgeBlocked(r.Edge)
	}
	return t.IsVertexBlocked(r.Vertex)
}

// VertexHolder returns the agent holding v.
func (t *Table) VertexHolder(v core.VertexID) (core.AgentID, bool) {
	a, ok := t.vertices[v]
	return a, ok
}

// EdgeHolder returns the agent holding k.
func (t *Table) EdgeHolder(k core.EdgeKey) (core.AgentID, bool) {
	a, ok := t.edges[k]
	return a, ok
}

// Holdings returns a copy of what agent holds.
func (t *Table) Holdings(agent core.AgentID) Holding {
	if h, ok := t.agents[agent]; ok {
		return *h
	}
	return Holding{}
}

// BlockedEdges returns every held edge.
func (t *Table) BlockedEdges() core.EdgeSet {
	s := make(core.EdgeSet, len(t.edges))
	for k := range t.edges {
		s.Add(k)
	}
	return s
}

// BlockedVertices returns every held vertex in ascending order.
func (t *Table) BlockedVertices() []core.VertexID {
	ids := make([]core.VertexID, 0, len(t.vertices))
	for v := range t.vertices {
		ids = append(ids, v)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Verify cross-checks the resource maps against the per-agent index.
func (t *Table) Verify() error {
	for v, agent := range t.vertices {
		h, ok := t.agents[agent]
		if !ok || !h.HasVertex || h.Vertex != v {
			return fmt.Errorf("%w: vertex %d held by agent %d without matching record", ErrInvariant, v, agent)
		}
	}
	for k, agent := range t.edges {
		h, ok := t.agents[agent]
		if !ok || !h.HasEdge || h.Edge != k {
			return fmt.Errorf("%w: edge %v held by agent %d without matching record", ErrInvariant, k, agent)
		}
	}
	for agent, h := range t.agents {
		if h.HasVertex {
			if holder, ok := t.vertices[h.Vertex]; !ok || holder != agent {
				return fmt.Errorf("%w: agent %d believes it holds vertex %d", ErrInvariant, agent, h.Vertex)
			}
		}
		if h.HasEdge {
			if holder, ok := t.edges[h.Edge]; !ok || holder != agent {
				return fmt.Errorf("%w: agent %d believes it holds edge %v", ErrInvariant, agent, h.Edge)
			}
			if !h.HasVertex || !h.Edge.Has(h.Vertex) {
				return fmt.Errorf("%w: agent %d on edge %v without its far vertex", ErrInvariant, agent, h.Edge)
			}
		}
	}
	return nil
}

// Len returns the number of held vertices and edges.
func (t *Table) Len() (vertices, edges int) {
	return len(t.vertices), len(t.edges)
}
