package main

import (
	"fmt"
	"math/rand"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
	"github.com/elektrokombinacija/fleet-traffic/internal/navgraph"
)

// GraphParams defines parameters for graph generation.
type GraphParams struct {
	Seed            int64   `json:"seed"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	Spacing         float64 `json:"spacing"`
	ChargingDensity float64 `json:"charging_density"` // Fraction of vertices that are chargers
	RemoveRatio     float64 `json:"remove_ratio"`     // Fraction of lanes to try removing
	NumAgents       int     `json:"num_agents"`
	WithTasks       bool    `json:"with_tasks"` // Give every startup agent a destination
}

// Name returns a file stem describing the parameters.
func (p GraphParams) Name() string {
	return fmt.Sprintf("warehouse_%dx%d_%d_%d", p.Width, p.Height, p.NumAgents, p.Seed)
}

// Generate builds a warehouse grid: chargers scattered by density (at least
// one), lanes removed at random as long as the graph stays connected, and
// startup agents on distinct vertices. The same params always give the
// same file.
func Generate(p GraphParams) (*navgraph.File, error) {
	if p.NumAgents > p.Width*p.Height {
		return nil, fmt.Errorf("%d agents do not fit a %dx%d grid", p.NumAgents, p.Width, p.Height)
	}
	g, err := navgraph.Grid(p.Width, p.Height, p.Spacing)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(p.Seed))
	ids := g.VertexIDs()

	chargers := make(map[core.VertexID]bool)
	for _, id := range ids {
		if rng.Float64() < p.ChargingDensity {
			chargers[id] = true
		}
	}
	if len(chargers) == 0 {
		chargers[ids[0]] = true
	}

	edges := g.Edges()
	rng.Shuffle(len(edges), func(i, j int) { edges[i], edges[j] = edges[j], edges[i] })
	n := max(0, min(len(edges), int(float64(len(edges))*p.RemoveRatio)))
	removed := core.NewEdgeSet()
	for _, e := range edges[:n] {
		removed.Add(e.Key)
		if !connected(g, removed) {
			delete(removed, e.Key)
		}
	}

	file := navgraph.FromGraph(g)
	for i := range file.Vertices {
		file.Vertices[i].IsCharger = chargers[core.VertexID(file.Vertices[i].ID)]
	}
	lanes := file.Lanes[:0]
	for _, lane := range file.Lanes {
		if !removed.Has(core.MakeEdgeKey(core.VertexID(lane[0]), core.VertexID(lane[1]))) {
			lanes = append(lanes, lane)
		}
	}
	file.Lanes = lanes

	starts := rng.Perm(len(ids))[:p.NumAgents]
	for _, s := range starts {
		rec := navgraph.AgentRecord{Start: int(ids[s])}
		if p.WithTasks {
			d := int(ids[rng.Intn(len(ids))])
			rec.Destination = &d
		}
		file.Agents = append(file.Agents, rec)
	}
	return &file, nil
}

// connected reports whether every vertex is reachable from the first one
// without crossing removed lanes.
func connected(g *core.Graph, removed core.EdgeSet) bool {
	ids := g.VertexIDs()
	if len(ids) == 0 {
		return true
	}
	seen := map[core.VertexID]bool{ids[0]: true}
	queue := []core.VertexID{ids[0]}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		nbrs, _ := g.Neighbors(v)
		for _, n := range nbrs {
			if seen[n] || removed.Has(core.MakeEdgeKey(v, n)) {
				continue
			}
			seen[n] = true
			queue = append(queue, n)
		}
	}
	return len(seen) == len(ids)
}
