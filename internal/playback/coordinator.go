// Package playback keeps a media clock and the transcript in step: it owns
// the shared playback position, resolves the active segment and word on
// every tick and decides when the transcript view needs to scroll.
package playback

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwulff/meetsync/internal/logging"
	"github.com/jwulff/meetsync/internal/transcript"
)

// Source is a media clock: an audio player or anything that reports a
// position while playing.
type Source interface {
	Position() float64
	Duration() float64
	Playing() bool
	Play() error
	Pause() error
	Seek(t float64) error
}

// Update is the result of one resolution.
type Update struct {
	Position       float64
	Active         transcript.Position
	SegmentChanged bool
	WordChanged    bool
}

// Coordinator drives highlight decisions from a Source and a Transcript.
// The position is readable from any goroutine; Tick and SeekTo must be
// called by one writer at a time.
type Coordinator struct {
	src Source
	tr  *transcript.Transcript
	log zerolog.Logger

	pos atomic.Uint64 // float64 bits

	mu   sync.Mutex
	last transcript.Position
}

// New returns a coordinator over src and tr.
func New(src Source, tr *transcript.Transcript, log zerolog.Logger) *Coordinator {
	c := &Coordinator{
		src:  src,
		tr:   tr,
		log:  logging.WithComponent(log, "playback"),
		last: transcript.None,
	}
	c.store(src.Position())
	return c
}

func (c *Coordinator) store(t float64) { c.pos.Store(math.Float64bits(t)) }

// Position returns the last stored playback position in seconds.
func (c *Coordinator) Position() float64 { return math.Float64frombits(c.pos.Load()) }

// Duration is the media duration, or the transcript end when the media
// reports none.
func (c *Coordinator) Duration() float64 {
	if d := c.src.Duration(); d > 0 {
		return d
	}
	return c.tr.Duration()
}

// Playing reports whether the media clock is running.
func (c *Coordinator) Playing() bool { return c.src.Playing() }

// Toggle switches between playing and paused.
func (c *Coordinator) Toggle() error {
	if c.src.Playing() {
		return c.src.Pause()
	}
	return c.src.Play()
}

// Current returns the most recently resolved position.
func (c *Coordinator) Current() transcript.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// SeekTo clamps t to [0, duration], stores it immediately and asks the
// source to follow. The stored position does not wait for the source; a
// source error is returned but the position stands.
func (c *Coordinator) SeekTo(t float64) (Update, error) {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if d := c.Duration(); t > d {
		t = d
	}
	c.store(t)
	u := c.resolve(t)

	err := c.src.Seek(t)
	if err != nil {
		c.log.Warn().Err(err).Float64("t", t).Msg("source seek failed")
	}
	return u, err
}

// Tick reads the media clock, stores the position and resolves it.
func (c *Coordinator) Tick() Update {
	t := c.src.Position()
	c.store(t)
	return c.resolve(t)
}

func (c *Coordinator) resolve(t float64) Update {
	p := c.tr.Resolve(t)

	c.mu.Lock()
	prev := c.last
	c.last = p
	c.mu.Unlock()

	u := Update{
		Position:       t,
		Active:         p,
		SegmentChanged: p.Segment != prev.Segment,
		WordChanged:    p != prev,
	}
	if u.SegmentChanged {
		c.log.Debug().Int("segment", p.Segment).Float64("t", t).Msg("active segment changed")
	}
	return u
}

// Run ticks every interval until ctx is done, passing each update to fn.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration, fn func(Update)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn(c.Tick())
		}
	}
}
