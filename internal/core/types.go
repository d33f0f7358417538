// Package core defines the domain model shared by the fleet engine:
// the navigation graph, agent identity and agent states.
package core

import "errors"

// ErrUnknownVertex is returned when a vertex id is not part of the graph.
var ErrUnknownVertex = errors.New("unknown vertex")

// AgentID is a unique agent identifier, assigned in spawn order.
type AgentID int

// AgentState is the lifecycle state of an agent.
type AgentState int

const (
	StateIdle         AgentState = iota // Spawned or finished charging, no task
	StateMoving                         // Following a planned path
	StateWaiting                        // Next reservation denied, no alternate
	StateCharging                       // Parked on a charger, battery rising
	StateTaskComplete                   // Reached the assigned destination
	StateBatteryDead                    // Battery depleted, frozen in place
)

// AllStates lists every agent state in declaration order.
func AllStates() []AgentState {
	return []AgentState{StateIdle, StateMoving, StateWaiting, StateCharging, StateTaskComplete, StateBatteryDead}
}

func (s AgentState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

var stateNames = [...]string{"IDLE", "MOVING", "WAITING", "CHARGING", "TASK_COMPLETE", "BATTERY_DEAD"}

// ParseAgentState is the inverse of String.
func ParseAgentState(s string) (AgentState, bool) {
	for i, name := range stateNames {
		if name == s {
			return AgentState(i), true
		}
	}
	return 0, false
}

// MarshalText encodes the state by name.
func (s AgentState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *AgentState) UnmarshalText(b []byte) error {
	st, ok := ParseAgentState(string(b))
	if !ok {
		return errors.New("unknown agent state " + string(b))
	}
	*s = st
	return nil
}

// Active reports whether the agent is travelling a route.
func (s AgentState) Active() bool {
	return s == StateMoving || s == StateWaiting
}
