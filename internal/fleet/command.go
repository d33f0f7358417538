package fleet

import (
	"fmt"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
)

// CommandKind selects what a command does.
type CommandKind string

const (
	CommandSpawn      CommandKind = "spawn"
	CommandAssign     CommandKind = "assign"
	CommandSetBattery CommandKind = "set_battery"
)

// Command is an operator request applied at the start of the next tick.
type Command struct {
	Kind     CommandKind   `json:"kind"`
	Agent    core.AgentID  `json:"agent"`
	Vertex   core.VertexID `json:"vertex"` // Spawn target or task destination
	Override bool          `json:"override,omitempty"`
	Level    float64       `json:"level,omitempty"`
}

// SpawnCommand places a new agent at v.
func SpawnCommand(v core.VertexID) Command {
	return Command{Kind: CommandSpawn, Agent: NoAgent, Vertex: v}
}

// AssignCommand sends an agent to the task destination.
func AssignCommand(task core.Task) Command {
	return Command{Kind: CommandAssign, Agent: task.Agent, Vertex: task.Destination, Override: task.Override}
}

// BatteryCommand sets an agent's battery level.
func BatteryCommand(id core.AgentID, level float64) Command {
	return Command{Kind: CommandSetBattery, Agent: id, Level: level}
}

// Task returns the task carried by an assign command.
func (c Command) Task() core.Task {
	return core.Task{Agent: c.Agent, Destination: c.Vertex, Override: c.Override}
}

func (c Command) String() string {
	switch c.Kind {
	case CommandSpawn:
		return fmt.Sprintf("spawn at %d", c.Vertex)
	case CommandAssign:
		return fmt.Sprintf("assign agent %d to %d (override=%v)", c.Agent, c.Vertex, c.Override)
	case CommandSetBattery:
		return fmt.Sprintf("set agent %d battery to %.1f", c.Agent, c.Level)
	}
	return string(c.Kind)
}

// Submit queues a command for the next tick.
func (f *Fleet) Submit(cmd Command) error {
	switch cmd.Kind {
	case CommandSpawn, CommandAssign, CommandSetBattery:
	default:
		return fmt.Errorf("%w %q", ErrUnknownCommand, cmd.Kind)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pending = append(f.pending, cmd)
	return nil
}

// Spawn queues an agent spawn at v.
func (f *Fleet) Spawn(v core.VertexID) error {
	return f.Submit(SpawnCommand(v))
}

// AssignTask queues a task assignment.
func (f *Fleet) AssignTask(task core.Task) error {
	return f.Submit(AssignCommand(task))
}

// SetBattery queues a battery level change.
func (f *Fleet) SetBattery(id core.AgentID, level float64) error {
	return f.Submit(BatteryCommand(id, level))
}

// Check validates a command against the current state without queueing it.
// The state can change before the command is applied, so a command that
// passes may still be rejected at the next tick.
func (f *Fleet) Check(cmd Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.check(cmd)
}

func (f *Fleet) check(cmd Command) error {
	switch cmd.Kind {
	case CommandSpawn:
		if !f.graph.Has(cmd.Vertex) {
			return fmt.Errorf("spawn: %w %d", core.ErrUnknownVertex, cmd.Vertex)
		}
		if f.table.IsVertexBlocked(cmd.Vertex) {
			return fmt.Errorf("spawn at %d: %w", cmd.Vertex, ErrVertexOccupied)
		}
	case CommandAssign:
		a, ok := f.byID[cmd.Agent]
		if !ok {
			return fmt.Errorf("assign: %w %d", ErrUnknownAgent, cmd.Agent)
		}
		if !f.graph.Has(cmd.Vertex) {
			return fmt.Errorf("assign: %w %d", core.ErrUnknownVertex, cmd.Vertex)
		}
		switch a.state {
		case core.StateCharging:
			if !cmd.Override {
				return fmt.Errorf("agent %d is charging: %w", a.id, ErrAgentBusy)
			}
		case core.StateBatteryDead:
			if !cmd.Override {
				return fmt.Errorf("agent %d battery depleted: %w", a.id, ErrAgentBusy)
			}
			if !f.graph.IsCharger(cmd.Vertex) {
				return fmt.Errorf("agent %d can only be sent to a charger, vertex %d: %w", a.id, cmd.Vertex, ErrNotCharger)
			}
		}
	case CommandSetBattery:
		if _, ok := f.byID[cmd.Agent]; !ok {
			return fmt.Errorf("set battery: %w %d", ErrUnknownAgent, cmd.Agent)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownCommand, cmd.Kind)
	}
	return nil
}
