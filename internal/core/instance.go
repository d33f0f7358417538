package core

import (
	"errors"
	"fmt"
)

// AgentSpec describes an agent placed when a scenario starts.
type AgentSpec struct {
	Start       VertexID
	Destination *VertexID
}

// Instance is a graph plus the agents to place on it.
type Instance struct {
	Graph  *Graph
	Agents []AgentSpec
}

// NewInstance creates an instance over an empty graph.
func NewInstance() *Instance {
	return &Instance{Graph: NewGraph()}
}

// Validate checks that every start and destination exists and starts are distinct.
func (inst *Instance) Validate() error {
	if inst.Graph == nil || inst.Graph.NumVertices() == 0 {
		return errors.New("instance has no graph")
	}
	starts := make(map[VertexID]int, len(inst.Agents))
	for i, a := range inst.Agents {
		if !inst.Graph.Has(a.Start) {
			return fmt.Errorf("agent %d start: %w %d", i, ErrUnknownVertex, a.Start)
		}
		if prev, dup := starts[a.Start]; dup {
			return fmt.Errorf("agents %d and %d share start vertex %d", prev, i, a.Start)
		}
		starts[a.Start] = i
		if a.Destination != nil && !inst.Graph.Has(*a.Destination) {
			return fmt.Errorf("agent %d destination: %w %d", i, ErrUnknownVertex, *a.Destination)
		}
	}
	return nil
}
