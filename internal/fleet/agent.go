package fleet

import (
	"github.com/elektrokombinacija/fleet-traffic/internal/core"
)

// progressTolerance absorbs float error when an edge is nearly done.
const progressTolerance = 1e-9

// agent is one robot. Only the Fleet reads or writes it.
type agent struct {
	id      core.AgentID
	label   string
	color   Color
	state   core.AgentState
	battery core.Battery

	// vertex is the vertex held in the reservation table: the position when
	// stationary, the arrival claim while on an edge.
	vertex    core.VertexID
	from      core.VertexID // departure vertex while on an edge
	onEdge    bool
	travelled float64 // distance along the current edge
	edgeLen   float64

	path        core.Path // vertices still to visit after vertex
	destination core.VertexID
	hasDest     bool

	chargeRoute bool // path was set by the low-battery reroute
	recovering  bool // manually sent to a charger after the battery died
	waitingTick bool // denied this tick
	lowNotified bool // charger-unreachable already reported
	odometer    float64
}

func newAgent(id core.AgentID, at core.VertexID, battery float64) *agent {
	return &agent{
		id:      id,
		label:   LabelFor(id),
		color:   ColorFor(id),
		state:   core.StateIdle,
		battery: core.ClampBattery(battery),
		vertex:  at,
	}
}

func (a *agent) edge() core.EdgeKey {
	return core.MakeEdgeKey(a.from, a.vertex)
}

// progress is the traversed fraction of the current edge.
func (a *agent) progress() float64 {
	if !a.onEdge || a.edgeLen <= 0 {
		return 0
	}
	p := a.travelled / a.edgeLen
	if p > 1 {
		return 1
	}
	return p
}

// position interpolates the agent along its edge.
func (a *agent) position(g *core.Graph) core.Point {
	to := g.MustVertex(a.vertex).Pos
	if !a.onEdge {
		return to
	}
	return g.MustVertex(a.from).Pos.Lerp(to, a.progress())
}

func (a *agent) routedToCharger(g *core.Graph) bool {
	return a.chargeRoute || (a.hasDest && g.IsCharger(a.destination))
}

func (a *agent) clearRoute() {
	a.path = nil
	a.hasDest = false
	a.chargeRoute = false
	a.recovering = false
}

func (a *agent) view(g *core.Graph) AgentView {
	v := AgentView{
		ID:         a.id,
		Label:      a.label,
		Color:      a.color,
		State:      a.state,
		Vertex:     a.vertex,
		OnEdge:     a.onEdge,
		Progress:   a.progress(),
		Pos:        a.position(g),
		Battery:    float64(a.battery),
		Path:       append(core.Path(nil), a.path...),
		Waiting:    a.waitingTick || a.state == core.StateWaiting,
		Recovering: a.recovering,
		Odometer:   a.odometer,
	}
	if a.onEdge {
		v.From, v.To = a.from, a.vertex
	}
	if a.hasDest {
		d := a.destination
		v.Destination = &d
	}
	return v
}
