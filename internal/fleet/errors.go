package fleet

import "errors"

var (
	// ErrFatal wraps every failure that stops the fleet.
	ErrFatal = errors.New("fleet halted")
	// ErrIllegalTransition is a state change outside the transition table.
	ErrIllegalTransition = errors.New("illegal state transition")

	ErrUnknownAgent   = errors.New("unknown agent")
	ErrVertexOccupied = errors.New("vertex is occupied")
	ErrAgentBusy      = errors.New("agent cannot accept a task")
	ErrNotCharger     = errors.New("destination is not a charger")
	ErrUnknownCommand = errors.New("unknown command")
)
