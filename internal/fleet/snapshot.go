package fleet

import (
	"github.com/elektrokombinacija/fleet-traffic/internal/algo"
	"github.com/elektrokombinacija/fleet-traffic/internal/core"
)

// AgentView is the read-only state of one agent after a tick.
type AgentView struct {
	ID          core.AgentID    `json:"id"`
	Label       string          `json:"label"`
	Color       Color           `json:"color"`
	State       core.AgentState `json:"state"`
	Vertex      core.VertexID   `json:"vertex"`
	OnEdge      bool            `json:"on_edge"`
	From        core.VertexID   `json:"from"`
	To          core.VertexID   `json:"to"`
	Progress    float64         `json:"progress"`
	Pos         core.Point      `json:"pos"`
	Battery     float64         `json:"battery"`
	Path        core.Path       `json:"path"`
	Destination *core.VertexID  `json:"destination"`
	Waiting     bool            `json:"waiting"`
	Recovering  bool            `json:"recovering,omitempty"`
	Odometer    float64         `json:"odometer"`
}

// Edge returns the edge the agent is on.
func (v AgentView) Edge() (core.EdgeKey, bool) {
	if !v.OnEdge {
		return core.EdgeKey{}, false
	}
	return core.MakeEdgeKey(v.From, v.To), true
}

// Snapshot is the fleet state published after every tick.
type Snapshot struct {
	Tick         uint64         `json:"tick"`
	Agents       []AgentView    `json:"agents"`
	BlockedEdges []core.EdgeKey `json:"blocked_edges"`
	Events       []Event        `json:"events"`
}

// Agent finds an agent by id.
func (s Snapshot) Agent(id core.AgentID) (AgentView, bool) {
	for _, a := range s.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return AgentView{}, false
}

// Footprints returns what each agent occupies, for conflict checks.
func (s Snapshot) Footprints() map[core.AgentID]algo.Footprint {
	fps := make(map[core.AgentID]algo.Footprint, len(s.Agents))
	for _, a := range s.Agents {
		fp := algo.Footprint{Vertex: a.Vertex}
		if k, ok := a.Edge(); ok {
			fp.Edge = &k
		}
		fps[a.ID] = fp
	}
	return fps
}

// CountStates tallies agents per state.
func (s Snapshot) CountStates() map[core.AgentState]int {
	counts := make(map[core.AgentState]int)
	for _, a := range s.Agents {
		counts[a.State]++
	}
	return counts
}

// Sink receives every snapshot. Publish must not block.
type Sink interface {
	Publish(Snapshot)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Snapshot)

// Publish calls f.
func (f SinkFunc) Publish(s Snapshot) { f(s) }

func (f *Fleet) snapshot() Snapshot {
	s := Snapshot{
		Tick:         f.tick,
		Agents:       make([]AgentView, 0, len(f.agents)),
		BlockedEdges: f.table.BlockedEdges().Sorted(),
		Events:       append([]Event(nil), f.events...),
	}
	for _, a := range f.agents {
		s.Agents = append(s.Agents, a.view(f.graph))
	}
	return s
}
