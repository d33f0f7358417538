package natsbus

import "github.com/elektrokombinacija/fleet-traffic/internal/fleet"

// Subjects for NATS pub/sub communication.

const (
	TopicSnapshot = "fleet.snapshot"
	TopicCommand  = "fleet.command"
	TopicEvents   = "fleet.event.>"
)

func TopicEvent(kind fleet.EventKind) string {
	return "fleet.event." + string(kind)
}
