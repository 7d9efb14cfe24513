// Package capture owns the audio-capture lifecycle: a state machine over one
// exclusively held device that emits ordered chunks and elapsed-duration
// ticks, and assembles them into a single recording on stop.
package capture

// State is a capture session state.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	State   State
	Elapsed int // ticked seconds
	Chunks  int
	Bytes   int
}

// EventKind distinguishes session notifications.
type EventKind int

const (
	EventTick EventKind = iota
	EventChunk
	EventState
)

// Event is a session notification carrying the state after the change.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
}
