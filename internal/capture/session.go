package capture

import (
	"context"
	"errors"
	"time"

	"github.com/gopxl/beep"
	"github.com/rs/zerolog"

	"github.com/jwulff/meetsync/internal/errs"
	"github.com/jwulff/meetsync/internal/logging"
)

// DefaultFormat is mono 16 kHz signed 16-bit PCM.
var DefaultFormat = beep.Format{SampleRate: 16000, NumChannels: 1, Precision: 2}

// Options configures a Session.
type Options struct {
	ChunkInterval time.Duration // default 1s
	TickInterval  time.Duration // default 1s
	Format        beep.Format
	Clock         Clock
	Logger        zerolog.Logger
}

func (o *Options) applyDefaults() {
	if o.ChunkInterval <= 0 {
		o.ChunkInterval = time.Second
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.Format.SampleRate == 0 {
		o.Format = DefaultFormat
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
}

type op int

const (
	opStart op = iota
	opPause
	opResume
	opStop
	opSnapshot
	opClose
)

func (o op) String() string {
	return [...]string{"start", "pause", "resume", "stop", "snapshot", "close"}[o]
}

type command struct {
	op    op
	ctx   context.Context
	reply chan result
}

type result struct {
	rec  *Recording
	snap Snapshot
	err  error
}

// Session is one capture lifecycle over a device. A single goroutine owns all
// session state and dispatches user commands, chunk ticks and duration ticks
// one at a time, so transitions are guarded by state checks alone.
type Session struct {
	device Device
	opts   Options
	log    zerolog.Logger

	cmds   chan command
	events chan Event
	done   chan struct{}
	final  Snapshot

	// Owned by run.
	state   State
	elapsed int
	chunks  [][]byte
	size    int
	stream  Stream
	tick    Ticker
	emit    Ticker

	// The duration tick survives pause: tickFrom is when the current tick
	// period began, carry the part of it recorded before the last pause.
	tickFrom  time.Time
	carry     time.Duration
	tickShort bool
}

// NewSession returns an idle session for device.
func NewSession(device Device, opts Options) *Session {
	opts.applyDefaults()
	s := &Session{
		device: device,
		opts:   opts,
		log:    logging.WithComponent(opts.Logger, "capture"),
		cmds:   make(chan command),
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Events delivers tick, chunk and state notifications. Notifications are
// dropped when the consumer falls behind; each carries the full snapshot.
// The channel is closed once the session reaches Stopped.
func (s *Session) Events() <-chan Event { return s.events }

// Start acquires the device and begins recording.
func (s *Session) Start(ctx context.Context) error {
	return s.do(ctx, opStart).err
}

// Pause stops ticking and chunk emission while keeping the device.
func (s *Session) Pause() error { return s.do(context.Background(), opPause).err }

// Resume restarts ticking and chunk emission.
func (s *Session) Resume() error { return s.do(context.Background(), opResume).err }

// Stop flushes, releases the device and returns the assembled recording.
func (s *Session) Stop() (*Recording, error) {
	r := s.do(context.Background(), opStop)
	return r.rec, r.err
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	return s.do(context.Background(), opSnapshot).snap
}

// Close tears the session down from any state. Timers are cancelled and the
// device released exactly once; any buffered audio is discarded.
func (s *Session) Close() {
	s.do(context.Background(), opClose)
}

func (s *Session) do(ctx context.Context, o op) result {
	reply := make(chan result, 1)
	select {
	case s.cmds <- command{op: o, ctx: ctx, reply: reply}:
		return <-reply
	case <-s.done:
		if o == opSnapshot || o == opClose {
			return result{snap: s.final}
		}
		return result{snap: s.final, err: errs.InvalidTransition(o.String(), StateStopped.String())}
	}
}

func (s *Session) run() {
	defer close(s.done)
	defer s.teardown()

	for {
		select {
		case c := <-s.cmds:
			r, exit := s.dispatch(c)
			c.reply <- r
			if exit {
				return
			}
		case at := <-tickerC(s.tick):
			s.elapsed++
			s.tickFrom = at
			if s.tickShort {
				s.tick.Stop()
				s.tick = s.opts.Clock.NewTicker(s.opts.TickInterval)
				s.tickShort = false
			}
			s.publish(EventTick)
		case <-tickerC(s.emit):
			s.drain()
		}
	}
}

// dispatch applies one command. exit reports that the session is finished.
func (s *Session) dispatch(c command) (r result, exit bool) {
	switch c.op {
	case opSnapshot:
		return result{snap: s.snapshot()}, false

	case opStart:
		if s.state != StateIdle {
			return s.invalid(c.op), false
		}
		stream, err := s.device.Open(c.ctx)
		if err != nil {
			if !errors.Is(err, errs.ErrDeviceUnavailable) {
				err = errs.DeviceUnavailable(err)
			}
			s.log.Error().Err(err).Msg("device acquisition failed")
			return result{snap: s.snapshot(), err: err}, false
		}
		s.stream = stream
		s.startTimers()
		s.transition(StateRecording)

	case opPause:
		if s.state != StateRecording {
			return s.invalid(c.op), false
		}
		s.holdTick()
		s.stopTimers()
		if err := s.stream.Pause(); err != nil {
			s.log.Warn().Err(err).Msg("device pause failed")
		}
		s.transition(StatePaused)

	case opResume:
		if s.state != StatePaused {
			return s.invalid(c.op), false
		}
		if err := s.stream.Resume(); err != nil {
			s.log.Warn().Err(err).Msg("device resume failed")
		}
		s.startTimers()
		s.transition(StateRecording)

	case opStop:
		if s.state != StateRecording && s.state != StatePaused {
			return s.invalid(c.op), false
		}
		s.transition(StateStopping)
		s.stopTimers()
		s.drain()
		s.release()
		rec := assemble(s.chunks, s.opts.Format, s.elapsed)
		s.chunks = nil
		s.transition(StateStopped)
		s.log.Info().Int("chunks", rec.Chunks).Int("elapsed", rec.Elapsed).
			Dur("duration", rec.Duration()).Msg("recording assembled")
		return result{rec: rec, snap: s.snapshot()}, true

	case opClose:
		s.stopTimers()
		s.release()
		s.chunks = nil
		if s.state != StateStopped {
			s.transition(StateStopped)
		}
		return result{snap: s.snapshot()}, true
	}
	return result{snap: s.snapshot()}, false
}

func (s *Session) invalid(o op) result {
	return result{snap: s.snapshot(), err: errs.InvalidTransition(o.String(), s.state.String())}
}

func (s *Session) transition(to State) {
	s.log.Debug().Str("from", s.state.String()).Str("to", to.String()).Msg("transition")
	s.state = to
	s.publish(EventState)
}

func (s *Session) drain() {
	if s.stream == nil {
		return
	}
	data, err := s.stream.Drain()
	if err != nil {
		s.log.Warn().Err(err).Msg("drain failed")
	}
	if len(data) == 0 {
		return
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)
	s.chunks = append(s.chunks, chunk)
	s.size += len(chunk)
	s.publish(EventChunk)
}

// startTimers starts chunk emission and the duration tick. After a pause
// the first tick fires once the carried part of the period is made up.
func (s *Session) startTimers() {
	s.tickFrom = s.opts.Clock.Now().Add(-s.carry)
	s.tick = s.opts.Clock.NewTicker(s.opts.TickInterval - s.carry)
	s.tickShort = s.carry > 0
	s.carry = 0
	s.emit = s.opts.Clock.NewTicker(s.opts.ChunkInterval)
}

// holdTick banks the recorded part of the current tick period. A period
// that already ran out but whose tick was not yet delivered is counted.
func (s *Session) holdTick() {
	into := s.opts.Clock.Now().Sub(s.tickFrom)
	if into >= s.opts.TickInterval {
		s.elapsed++
		s.publish(EventTick)
		into -= s.opts.TickInterval
	}
	s.carry = max(0, min(into, s.opts.TickInterval-1))
}

func (s *Session) stopTimers() {
	if s.tick != nil {
		s.tick.Stop()
		s.tick = nil
	}
	if s.emit != nil {
		s.emit.Stop()
		s.emit = nil
	}
}

func (s *Session) release() {
	if s.stream == nil {
		return
	}
	if err := s.stream.Close(); err != nil {
		s.log.Warn().Err(err).Msg("device release failed")
	}
	s.stream = nil
}

// teardown runs on every exit path of run.
func (s *Session) teardown() {
	s.stopTimers()
	s.release()
	s.final = s.snapshot()
	close(s.events)
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{State: s.state, Elapsed: s.elapsed, Chunks: len(s.chunks), Bytes: s.size}
}

func (s *Session) publish(kind EventKind) {
	select {
	case s.events <- Event{Kind: kind, Snapshot: s.snapshot()}:
	default:
	}
}

func tickerC(t Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C()
}
