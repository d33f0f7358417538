package fleet

import "github.com/elektrokombinacija/fleet-traffic/internal/core"

// EventKind classifies fleet events.
type EventKind string

const (
	EventSpawned            EventKind = "spawned"
	EventSpawnRejected      EventKind = "spawn_rejected"
	EventTaskAssigned       EventKind = "task_assigned"
	EventTaskRejected       EventKind = "task_rejected"
	EventNoPath             EventKind = "no_path"
	EventStateChanged       EventKind = "state_changed"
	EventRerouted           EventKind = "rerouted"
	EventWaiting            EventKind = "waiting"
	EventChargeReroute      EventKind = "charge_reroute"
	EventChargerUnreachable EventKind = "charger_unreachable"
	EventCharging           EventKind = "charging"
	EventCharged            EventKind = "charged"
	EventTaskComplete       EventKind = "task_complete"
	EventBatteryDead        EventKind = "battery_dead"
	EventBatterySet         EventKind = "battery_set"
)

// NoAgent marks events not tied to an agent.
const NoAgent core.AgentID = -1

// Notification reports whether the event is a failure an operator should see.
func (k EventKind) Notification() bool {
	switch k {
	case EventSpawnRejected, EventTaskRejected, EventNoPath, EventChargerUnreachable, EventBatteryDead:
		return true
	}
	return false
}

// Event is something that happened during a tick.
type Event struct {
	Tick    uint64        `json:"tick"`
	Kind    EventKind     `json:"kind"`
	Agent   core.AgentID  `json:"agent"`
	Vertex  core.VertexID `json:"vertex"`
	Message string        `json:"message"`
}

func (f *Fleet) emit(e Event) {
	e.Tick = f.tick
	f.events = append(f.events, e)
	if e.Kind.Notification() {
		f.log.Warn(e.Message, "kind", e.Kind, "agent", e.Agent, "vertex", e.Vertex, "tick", e.Tick)
	}
}
