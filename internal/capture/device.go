package capture

import (
	"context"
	"time"
)

// Device is an audio input that can be held by one session at a time.
type Device interface {
	// Open acquires the device exclusively and starts capturing.
	Open(ctx context.Context) (Stream, error)
}

// Stream is an acquired device.
type Stream interface {
	// Drain returns the audio captured since the previous call.
	Drain() ([]byte, error)
	// Pause stops capturing without releasing the device.
	Pause() error
	// Resume restarts capturing after Pause.
	Resume() error
	// Close releases the device.
	Close() error
}

// Ticker is the subset of time.Ticker a session needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock tells time and creates tickers. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }
