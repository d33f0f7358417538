package core

// Task asks an agent to travel to a destination. It is consumed into the
// agent's planned path when assigned and not kept afterwards.
type Task struct {
	Agent       AgentID
	Destination VertexID
	Override    bool // Allowed to interrupt charging or revive a dead agent
}
