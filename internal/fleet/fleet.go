package fleet

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/elektrokombinacija/fleet-traffic/internal/algo"
	"github.com/elektrokombinacija/fleet-traffic/internal/core"
	"github.com/elektrokombinacija/fleet-traffic/internal/traffic"
)

// Fleet owns every agent and the reservation table, and advances them one
// tick at a time. Commands may be submitted from any goroutine; they are
// applied at the start of the next tick.
type Fleet struct {
	mu sync.Mutex

	graph  *core.Graph
	params Params
	log    *slog.Logger
	sinks  []Sink

	table   *traffic.Table
	agents  []*agent // ascending id, the tick order
	byID    map[core.AgentID]*agent
	pending []Command

	tick    uint64
	events  []Event
	blocked core.EdgeSet // held edges, refreshed every tick
	last    Snapshot
	err     error
}

// Option configures a Fleet.
type Option func(*Fleet)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Fleet) {
		if l != nil {
			f.log = l
		}
	}
}

// WithSink adds a snapshot consumer.
func WithSink(s Sink) Option {
	return func(f *Fleet) { f.sinks = append(f.sinks, s) }
}

// New creates a fleet over g. Invalid params leave the fleet halted: Err,
// Submit and Tick all report them.
func New(g *core.Graph, params Params, opts ...Option) *Fleet {
	f := &Fleet{
		graph:  g,
		params: params,
		log:    slog.Default(),
		table:  traffic.NewTable(),
		byID:   make(map[core.AgentID]*agent),
	}
	for _, opt := range opts {
		opt(f)
	}
	if err := params.Validate(); err != nil {
		f.err = fmt.Errorf("%w: invalid params: %w", ErrFatal, err)
		f.log.Error("fleet halted", "err", err)
	}
	f.last = f.snapshot()
	return f
}

// AddSink registers a snapshot consumer after construction.
func (f *Fleet) AddSink(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, s)
}

// Graph returns the navigation graph.
func (f *Fleet) Graph() *core.Graph { return f.graph }

// Params returns the tuning in use.
func (f *Fleet) Params() Params { return f.params }

// Snapshot returns the state published by the last tick.
func (f *Fleet) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Err returns the fatal error that stopped the fleet, if any.
func (f *Fleet) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Tick applies pending commands, advances every agent once in id order and
// publishes the resulting snapshot.
func (f *Fleet) Tick() (Snapshot, error) {
	f.mu.Lock()
	snap, err := f.tickLocked()
	sinks := append([]Sink(nil), f.sinks...)
	f.mu.Unlock()

	if err != nil {
		return Snapshot{}, err
	}
	for _, s := range sinks {
		s.Publish(snap)
	}
	return snap, nil
}

func (f *Fleet) tickLocked() (snap Snapshot, err error) {
	if f.err != nil {
		return Snapshot{}, f.err
	}
	defer func() {
		if r := recover(); r != nil {
			snap, err = f.fail(fmt.Errorf("panic: %v", r))
		}
	}()

	f.tick++
	f.events = nil

	pending := f.pending
	f.pending = nil
	for _, cmd := range pending {
		if err := f.apply(cmd); err != nil {
			return f.fail(fmt.Errorf("%v: %w", cmd, err))
		}
	}

	f.blocked = f.table.BlockedEdges()
	for _, a := range f.agents {
		if err := f.step(a); err != nil {
			return f.fail(fmt.Errorf("agent %d: %w", a.id, err))
		}
	}

	if err := f.verify(); err != nil {
		return f.fail(err)
	}

	f.last = f.snapshot()
	return f.last, nil
}

// verify checks the table and that every agent holds exactly its footprint.
func (f *Fleet) verify() error {
	if err := f.table.Verify(); err != nil {
		return err
	}
	for _, a := range f.agents {
		h := f.table.Holdings(a.id)
		if !h.HasVertex || h.Vertex != a.vertex {
			return fmt.Errorf("%w: agent %d does not hold its vertex %d", traffic.ErrInvariant, a.id, a.vertex)
		}
		if h.HasEdge != a.onEdge || (a.onEdge && h.Edge != a.edge()) {
			return fmt.Errorf("%w: agent %d edge reservation out of step", traffic.ErrInvariant, a.id)
		}
	}
	return nil
}

func (f *Fleet) fail(err error) (Snapshot, error) {
	f.err = fmt.Errorf("%w: tick %d: %w", ErrFatal, f.tick, err)
	f.log.Error("fleet halted", "tick", f.tick, "err", err)
	return Snapshot{}, f.err
}

func (f *Fleet) apply(cmd Command) error {
	switch cmd.Kind {
	case CommandSpawn:
		return f.applySpawn(cmd)
	case CommandAssign:
		return f.applyAssign(cmd)
	case CommandSetBattery:
		return f.applyBattery(cmd)
	}
	return fmt.Errorf("%w %q", ErrUnknownCommand, cmd.Kind)
}

func (f *Fleet) applySpawn(cmd Command) error {
	if err := f.check(cmd); err != nil {
		msg := fmt.Sprintf("Cannot spawn robot at vertex %d: %v", cmd.Vertex, err)
		if errors.Is(err, ErrVertexOccupied) {
			msg = fmt.Sprintf("Cannot spawn robot - vertex %d is occupied", cmd.Vertex)
		}
		f.emit(Event{Kind: EventSpawnRejected, Agent: NoAgent, Vertex: cmd.Vertex, Message: msg})
		return nil
	}

	id := core.AgentID(len(f.agents))
	a := newAgent(id, cmd.Vertex, f.params.InitialBattery)
	granted, err := f.table.TryReserveVertex(id, cmd.Vertex)
	if err != nil {
		return err
	}
	if !granted {
		return fmt.Errorf("%w: free vertex %d denied to new agent %d", traffic.ErrInvariant, cmd.Vertex, id)
	}
	f.agents = append(f.agents, a)
	f.byID[id] = a

	f.emit(Event{Kind: EventSpawned, Agent: id, Vertex: cmd.Vertex,
		Message: fmt.Sprintf("Robot %d spawned at vertex %d", id, cmd.Vertex)})
	f.log.Info("agent spawned", "agent", id, "vertex", cmd.Vertex)
	return nil
}

func (f *Fleet) applyAssign(cmd Command) error {
	if err := f.check(cmd); err != nil {
		f.emit(Event{Kind: EventTaskRejected, Agent: cmd.Agent, Vertex: cmd.Vertex,
			Message: fmt.Sprintf("Task for robot %d rejected: %v", cmd.Agent, err)})
		return nil
	}
	a := f.byID[cmd.Agent]

	occupied := f.table.BlockedEdges()
	if a.onEdge {
		delete(occupied, a.edge())
	}
	path, err := algo.FreeRoute(f.graph, a.vertex, cmd.Vertex, occupied)
	if errors.Is(err, algo.ErrNoPath) {
		f.emit(Event{Kind: EventNoPath, Agent: a.id, Vertex: cmd.Vertex,
			Message: fmt.Sprintf("No path found to vertex %d", cmd.Vertex)})
		return nil
	}
	if err != nil {
		return err
	}

	wasDead := a.state == core.StateBatteryDead
	if err := f.setState(a, core.StateMoving); err != nil {
		return err
	}
	a.path = path[1:]
	a.destination, a.hasDest = cmd.Vertex, true
	a.chargeRoute = false
	a.recovering = wasDead
	a.lowNotified = false

	f.emit(Event{Kind: EventTaskAssigned, Agent: a.id, Vertex: cmd.Vertex,
		Message: fmt.Sprintf("Robot %d assigned to vertex %d", a.id, cmd.Vertex)})
	f.log.Info("task assigned", "agent", a.id, "destination", cmd.Vertex, "hops", len(a.path), "override", cmd.Override)
	return nil
}

func (f *Fleet) applyBattery(cmd Command) error {
	if err := f.check(cmd); err != nil {
		f.emit(Event{Kind: EventTaskRejected, Agent: cmd.Agent, Message: err.Error()})
		return nil
	}
	a := f.byID[cmd.Agent]
	a.battery = core.ClampBattery(cmd.Level)
	f.emit(Event{Kind: EventBatterySet, Agent: a.id, Vertex: a.vertex,
		Message: fmt.Sprintf("Robot %d battery set to %.1f%%", a.id, float64(a.battery))})
	return nil
}

// step advances one agent by one tick.
func (f *Fleet) step(a *agent) error {
	a.waitingTick = false
	switch a.state {
	case core.StateCharging:
		return f.charge(a)
	case core.StateMoving, core.StateWaiting:
		return f.advance(a)
	}
	return nil
}

func (f *Fleet) charge(a *agent) error {
	a.battery = a.battery.Recharge(f.params.ChargePerTick)
	if !a.battery.IsFull() {
		return nil
	}
	a.clearRoute()
	a.lowNotified = false
	if err := f.setState(a, core.StateIdle); err != nil {
		return err
	}
	f.emit(Event{Kind: EventCharged, Agent: a.id, Vertex: a.vertex,
		Message: fmt.Sprintf("Robot %d fully charged", a.id)})
	return nil
}

// advance moves an active agent by up to one tick of distance, crossing as
// many vertices as the budget allows.
func (f *Fleet) advance(a *agent) error {
	if a.battery.IsEmpty() && !a.recovering {
		return f.die(a)
	}
	if a.battery.IsLow(f.params.LowBattery) && !a.recovering && !a.routedToCharger(f.graph) {
		if err := f.routeToCharger(a); err != nil {
			return err
		}
	}

	budget := f.params.Speed
	for {
		if a.onEdge {
			d := math.Min(budget, a.edgeLen-a.travelled)
			a.travelled += d
			a.odometer += d
			budget -= d
			if !a.recovering {
				a.battery = a.battery.Consume(d * f.params.DrainPerUnit)
				if a.battery.IsEmpty() {
					return f.die(a)
				}
			}
			if a.travelled < a.edgeLen-progressTolerance {
				return nil
			}
			if err := f.arrive(a); err != nil {
				return err
			}
		}

		if len(a.path) == 0 {
			return f.finish(a)
		}
		if budget <= progressTolerance {
			return nil
		}
		granted, err := f.depart(a)
		if err != nil || !granted {
			return err
		}
	}
}

// depart tries to take the next edge of the path.
func (f *Fleet) depart(a *agent) (bool, error) {
	next := a.path[0]
	edge, ok := f.graph.EdgeBetween(a.vertex, next)
	if !ok {
		return false, fmt.Errorf("planned hop %d-%d is not an edge: %w", a.vertex, next, core.ErrUnknownVertex)
	}

	granted, err := f.table.TryReserveEdge(a.id, a.vertex, next)
	if err != nil {
		return false, err
	}
	if !granted {
		return false, f.denied(a, edge.Key)
	}

	a.from = a.vertex
	a.vertex = next
	a.path = a.path[1:]
	a.onEdge = true
	a.travelled = 0
	a.edgeLen = edge.Cost
	f.blocked.Add(edge.Key)
	return true, f.setState(a, core.StateMoving)
}

// arrive completes the current edge. The far vertex is already held.
func (f *Fleet) arrive(a *agent) error {
	f.table.ReleaseEdge(a.id, a.edge())
	a.onEdge = false
	a.travelled, a.edgeLen = 0, 0
	granted, err := f.table.TryReserveVertex(a.id, a.vertex)
	if err != nil {
		return err
	}
	if !granted {
		return fmt.Errorf("%w: agent %d lost its claim on vertex %d", traffic.ErrInvariant, a.id, a.vertex)
	}
	return nil
}

// denied handles a refused edge: adopt a route around it, or wait. Routes
// avoid vertices of agents that are not travelling. An agent refused the
// last hop, or whose destination is held by such an agent, waits for it to
// clear since every route ends there.
func (f *Fleet) denied(a *agent, key core.EdgeKey) error {
	a.waitingTick = true
	parked := f.parkedVertices(a.id)

	if a.hasDest && !parked[a.destination] && key.Other(a.vertex) != a.destination {
		exclude := f.blocked.Clone()
		exclude.Add(key)
		for v := range parked {
			neighbors, err := f.graph.Neighbors(v)
			if err != nil {
				return err
			}
			for _, n := range neighbors {
				exclude.Add(core.MakeEdgeKey(v, n))
			}
		}

		alt, err := algo.FindPath(f.graph, a.vertex, a.destination, exclude)
		switch {
		case err == nil && len(alt) > 1:
			a.path = alt[1:]
			f.emit(Event{Kind: EventRerouted, Agent: a.id, Vertex: a.vertex,
				Message: fmt.Sprintf("Robot %d rerouted around edge %v", a.id, key)})
			return f.setState(a, core.StateMoving)
		case err != nil && !errors.Is(err, algo.ErrNoPath):
			return err
		}
	}

	if a.state != core.StateWaiting {
		f.emit(Event{Kind: EventWaiting, Agent: a.id, Vertex: a.vertex,
			Message: fmt.Sprintf("Robot %d waiting for edge %v", a.id, key)})
	}
	return f.setState(a, core.StateWaiting)
}

// parkedVertices returns the vertices held by agents other than self that
// are not travelling a route.
func (f *Fleet) parkedVertices(self core.AgentID) map[core.VertexID]bool {
	parked := make(map[core.VertexID]bool)
	for _, other := range f.agents {
		if other.id != self && !other.state.Active() {
			parked[other.vertex] = true
		}
	}
	return parked
}

// finish handles the end of the path.
func (f *Fleet) finish(a *agent) error {
	dest := a.vertex
	a.clearRoute()
	if f.graph.IsCharger(dest) && !a.battery.IsFull() {
		if err := f.setState(a, core.StateCharging); err != nil {
			return err
		}
		f.emit(Event{Kind: EventCharging, Agent: a.id, Vertex: dest,
			Message: fmt.Sprintf("Robot %d charging at vertex %d", a.id, dest)})
		return nil
	}
	if err := f.setState(a, core.StateTaskComplete); err != nil {
		return err
	}
	f.emit(Event{Kind: EventTaskComplete, Agent: a.id, Vertex: dest,
		Message: fmt.Sprintf("Robot %d reached vertex %d", a.id, dest)})
	f.log.Info("task complete", "agent", a.id, "vertex", dest, "battery", float64(a.battery))
	return nil
}

// die freezes the agent on the vertex it holds. An agent that dies mid-edge
// is moved forward onto the far vertex it claimed when it departed, since
// that is the vertex the table holds for it.
func (f *Fleet) die(a *agent) error {
	if a.onEdge {
		f.table.ReleaseEdge(a.id, a.edge())
		a.onEdge = false
		a.travelled, a.edgeLen = 0, 0
	}
	a.battery = core.BatteryEmpty
	a.clearRoute()
	if err := f.setState(a, core.StateBatteryDead); err != nil {
		return err
	}
	f.emit(Event{Kind: EventBatteryDead, Agent: a.id, Vertex: a.vertex,
		Message: fmt.Sprintf("Robot %d battery depleted at vertex %d", a.id, a.vertex)})
	return nil
}

// routeToCharger replaces the path with one to the nearest charger.
func (f *Fleet) routeToCharger(a *agent) error {
	charger, path, err := algo.NearestCharger(f.graph, a.vertex, nil)
	if errors.Is(err, algo.ErrNoPath) {
		if !a.lowNotified {
			a.lowNotified = true
			f.emit(Event{Kind: EventChargerUnreachable, Agent: a.id, Vertex: a.vertex,
				Message: fmt.Sprintf("Robot %d low on battery, no charging station reachable", a.id)})
		}
		return nil
	}
	if err != nil {
		return err
	}

	a.path = path[1:]
	a.destination, a.hasDest = charger, true
	a.chargeRoute = true
	f.emit(Event{Kind: EventChargeReroute, Agent: a.id, Vertex: charger,
		Message: fmt.Sprintf("Robot %d heading to charging station %d", a.id, charger)})
	f.log.Info("low battery reroute", "agent", a.id, "battery", float64(a.battery), "charger", charger)
	return f.setState(a, core.StateMoving)
}
