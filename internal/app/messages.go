package app

import (
	"github.com/jwulff/meetsync/internal/backend"
	"github.com/jwulff/meetsync/internal/capture"
	"github.com/jwulff/meetsync/internal/live"
	"github.com/jwulff/meetsync/internal/playback"
)

// CaptureStateMsg carries the session state after a successful command.
type CaptureStateMsg struct {
	Snapshot capture.Snapshot
}

// CaptureEventMsg wraps a tick, chunk or state notification.
type CaptureEventMsg struct {
	Event capture.Event
}

// CaptureClosedMsg is sent when the capture event stream ends.
type CaptureClosedMsg struct{}

// CaptureStoppedMsg carries the assembled recording.
type CaptureStoppedMsg struct {
	Recording *capture.Recording
}

// CaptureErrorMsg carries a failed capture command.
type CaptureErrorMsg struct {
	Err error
}

// LiveUpdateMsg carries the latest live session snapshot.
type LiveUpdateMsg struct {
	Snapshot live.Snapshot
}

// LiveClosedMsg is sent when the live session has returned.
type LiveClosedMsg struct{}

// BotStoppedMsg carries the response to a bot stop request.
type BotStoppedMsg struct {
	Result backend.StopResult
	Err    error
}

// PlaybackTickMsg triggers one coordinator tick.
type PlaybackTickMsg struct{}

// PlaybackUpdateMsg carries a resolution outside the tick loop, e.g. a seek.
type PlaybackUpdateMsg struct {
	Update playback.Update
	Err    error
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
