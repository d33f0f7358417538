package fleet

import (
	"fmt"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
)

// transitions lists every legal state change.
var transitions = map[core.AgentState][]core.AgentState{
	core.StateIdle:         {core.StateMoving},
	core.StateMoving:       {core.StateWaiting, core.StateTaskComplete, core.StateCharging, core.StateBatteryDead},
	core.StateWaiting:      {core.StateMoving, core.StateBatteryDead},
	core.StateCharging:     {core.StateIdle, core.StateMoving},
	core.StateTaskComplete: {core.StateMoving},
	core.StateBatteryDead:  {core.StateMoving},
}

// CanTransition reports whether from -> to is a legal state change.
func CanTransition(from, to core.AgentState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transitions returns the legal successors of a state.
func Transitions(from core.AgentState) []core.AgentState {
	return append([]core.AgentState(nil), transitions[from]...)
}

func (f *Fleet) setState(a *agent, to core.AgentState) error {
	if a.state == to {
		return nil
	}
	if !CanTransition(a.state, to) {
		return fmt.Errorf("%w: agent %d %v -> %v", ErrIllegalTransition, a.id, a.state, to)
	}
	from := a.state
	a.state = to
	f.emit(Event{Kind: EventStateChanged, Agent: a.id, Vertex: a.vertex, Message: fmt.Sprintf("%v -> %v", from, to)})
	f.log.Debug("agent state", "agent", a.id, "from", from, "to", to, "vertex", a.vertex)
	return nil
}
