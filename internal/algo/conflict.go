package algo

import (
	"sort"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
)

// Footprint is the space an agent occupies at one instant: the vertex it
// holds and, while traversing, the edge it is on.
type Footprint struct {
	Vertex core.VertexID
	Edge   *core.EdgeKey
}

// Conflict represents two agents sharing a vertex or an edge.
type Conflict struct {
	Agent1, Agent2 core.AgentID
	Vertex         core.VertexID
	IsEdge         bool // Edge conflict vs vertex conflict
	Edge           core.EdgeKey
}

// FindFirstConflict checks footprints pairwise in agent id order and returns
// the first shared vertex or edge, or nil.
func FindFirstConflict(footprints map[core.AgentID]Footprint) *Conflict {
	agents := sortedAgentIDs(footprints)

	vertexOwner := make(map[core.VertexID]core.AgentID, len(agents))
	edgeOwner := make(map[core.EdgeKey]core.AgentID)
	for _, id := range agents {
		fp := footprints[id]
		if other, taken := vertexOwner[fp.Vertex]; taken {
			return &Conflict{Agent1: other, Agent2: id, Vertex: fp.Vertex}
		}
		vertexOwner[fp.Vertex] = id

		if fp.Edge == nil {
			continue
		}
		if other, taken := edgeOwner[*fp.Edge]; taken {
			return &Conflict{Agent1: other, Agent2: id, IsEdge: true, Edge: *fp.Edge}
		}
		edgeOwner[*fp.Edge] = id
	}
	return nil
}

// sortedAgentIDs returns sorted agent IDs from the footprint map.
func sortedAgentIDs(footprints map[core.AgentID]Footprint) []core.AgentID {
	agents := make([]core.AgentID, 0, len(footprints))
	for id := range footprints {
		agents = append(agents, id)
	}
	sort.Slice(agents, func(i, j int) bool {
		return agents[i] < agents[j]
	})
	return agents
}
