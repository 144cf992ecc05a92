// Package controller maps user triggers and event-loop ticks onto the
// background runner and keeps the status message the view displays.
package controller

// State is the controller's coarse state.
type State int

const (
	// StateIdle means no generation task is outstanding.
	StateIdle State = iota

	// StateRunning means a task was started and its outcome not yet drained.
	StateRunning
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// AcceptsTrigger returns true if a trigger in this state would start a task.
func (s State) AcceptsTrigger() bool {
	return s == StateIdle
}
