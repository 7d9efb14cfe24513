package live

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwulff/meetsync/internal/backend"
	"github.com/jwulff/meetsync/internal/channel"
	"github.com/jwulff/meetsync/internal/errs"
	"github.com/jwulff/meetsync/internal/logging"
	"github.com/jwulff/meetsync/internal/transcript"
)

// Conn is a joined-or-joinable channel connection.
type Conn interface {
	Join(meetingID string) error
	Next() (channel.Envelope, error)
	Close() error
}

// Dialer opens channel connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// ChannelDialer dials the live channel at Addr.
type ChannelDialer struct{ Addr string }

// Dial implements Dialer.
func (d ChannelDialer) Dial(ctx context.Context) (Conn, error) {
	c, err := channel.Dial(ctx, d.Addr)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// StatusSource reports a meeting bot's status.
type StatusSource interface {
	BotStatus(ctx context.Context, meetingID string) (backend.BotStatus, error)
}

// Sink receives every finalized segment.
type Sink interface {
	AppendSegment(ctx context.Context, meetingID string, seg transcript.Segment) error
}

// Options configures a Session.
type Options struct {
	PollInterval time.Duration // default 5s
	BackoffBase  time.Duration // default 1s
	BackoffMax   time.Duration // default 30s
	Sink         Sink
	Logger       zerolog.Logger
}

func (o *Options) applyDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 30 * time.Second
	}
}

// backoff returns the delay before reconnect attempt n (n >= 1):
// base, 2*base, 4*base, 8*base, then 16*base for every later attempt.
func (o Options) backoff(n int) time.Duration {
	if n < 1 {
		return 0
	}
	d := o.BackoffBase << min(n-1, 4)
	return min(d, o.BackoffMax)
}

// Session follows one meeting's live transcript until the bot goes inactive
// or the context is cancelled.
type Session struct {
	meetingID string
	dialer    Dialer
	status    StatusSource
	opts      Options
	log       zerolog.Logger
	merger    *Merger
	updates   chan Snapshot
}

// NewSession returns a session for meetingID appending to tr. tr may be nil.
func NewSession(meetingID string, tr *transcript.Transcript, d Dialer, st StatusSource, opts Options) *Session {
	opts.applyDefaults()
	log := logging.WithComponent(opts.Logger, "live").With().Str("meeting", meetingID).Logger()
	return &Session{
		meetingID: meetingID,
		dialer:    d,
		status:    st,
		opts:      opts,
		log:       log,
		merger:    NewMerger(meetingID, tr, log),
		updates:   make(chan Snapshot, 1),
	}
}

// Transcript returns the transcript the session appends to.
func (s *Session) Transcript() *transcript.Transcript { return s.merger.Transcript() }

// Updates delivers the latest snapshot after every change. A slow reader sees
// only the most recent one. The channel is closed when Run returns.
func (s *Session) Updates() <-chan Snapshot { return s.updates }

// internal runner messages
type (
	connected  struct{ conn Conn }
	dialFailed struct{ err error }
	// fromConn tags a reader's event with its connection; events from a
	// connection that was since replaced are discarded.
	fromConn struct {
		conn Conn
		ev   Event
	}
)

// Run drives the session. It returns nil when the bot goes inactive and the
// context error when cancelled. Every goroutine and timer it starts is
// released before it returns.
func (s *Session) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer close(s.updates)
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs := make(chan any, 16)
	send := func(m any) bool {
		select {
		case msgs <- m:
			return true
		case <-ctx.Done():
			return false
		}
	}
	spawn := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}

	var conn Conn
	defer func() {
		if conn != nil {
			conn.Close()
		}
	}()

	dial := func(attempt int) {
		s.apply(Dialing{Attempt: attempt})
		delay := s.opts.backoff(attempt)
		if attempt > 0 {
			s.log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("reconnecting")
		}
		spawn(func() {
			if delay > 0 {
				t := time.NewTimer(delay)
				defer t.Stop()
				select {
				case <-t.C:
				case <-ctx.Done():
					return
				}
			}
			c, err := s.dialer.Dial(ctx)
			if err != nil {
				send(dialFailed{err: err})
				return
			}
			if err := c.Join(s.meetingID); err != nil {
				c.Close()
				send(dialFailed{err: err})
				return
			}
			if !send(connected{conn: c}) {
				c.Close()
			}
		})
	}

	read := func(c Conn) {
		emit := func(ev Event) bool { return send(fromConn{conn: c, ev: ev}) }
		for {
			env, err := c.Next()
			if err != nil {
				if errors.Is(err, errs.ErrMalformedFragment) {
					emit(Malformed{Err: err})
					continue
				}
				emit(Dropped{Err: err})
				return
			}
			switch env.Event {
			case channel.EventTranscriptUpdate:
				var upd channel.TranscriptUpdate
				if err := env.Decode(&upd); err != nil {
					emit(Malformed{Err: errs.MalformedFragment(err.Error())})
					continue
				}
				emit(Update{MeetingID: upd.MeetingID, Raw: upd.Transcript})
			case channel.EventJoinedMeeting:
				if env.MeetingID() == s.meetingID {
					emit(Joined{})
				}
			default:
				s.log.Debug().Str("event", env.Event).Msg("ignoring channel event")
			}
			if ctx.Err() != nil {
				return
			}
		}
	}

	poll := time.NewTicker(s.opts.PollInterval)
	defer poll.Stop()
	polling := false

	attempt := 0
	dial(attempt)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-poll.C:
			if polling {
				continue
			}
			polling = true
			spawn(func() {
				st, err := s.status.BotStatus(ctx, s.meetingID)
				send(StatusPolled{Status: st, Err: err})
			})

		case m := <-msgs:
			switch m := m.(type) {
			case connected:
				conn = m.conn
				attempt = 0
				s.apply(Joined{})
				c := conn
				spawn(func() { read(c) })

			case dialFailed:
				s.log.Warn().Err(m.err).Int("attempt", attempt).Msg("dial failed")
				attempt++
				dial(attempt)

			case fromConn:
				if m.conn != conn {
					s.log.Debug().Msg("discarding event from a replaced connection")
					continue
				}
				dropped, ok := m.ev.(Dropped)
				if !ok {
					s.apply(m.ev)
					continue
				}
				sig := s.apply(dropped)
				conn.Close()
				conn = nil
				if sig.Reconnect {
					attempt++
					dial(attempt)
				}

			case StatusPolled:
				polling = false
				if sig := s.apply(m); sig.Ended {
					return nil
				}

			case Event:
				s.apply(m)
			}
		}
	}
}

// apply dispatches ev, forwards appended segments to the sink and publishes
// a snapshot when anything changed.
func (s *Session) apply(ev Event) Signal {
	sig := s.merger.Dispatch(ev)
	if sig.Appended != nil && s.opts.Sink != nil {
		if err := s.opts.Sink.AppendSegment(context.Background(), s.meetingID, *sig.Appended); err != nil {
			s.log.Warn().Err(err).Msg("persist segment")
		}
	}
	if sig.Changed {
		s.publish(s.merger.Snapshot())
	}
	return sig
}

func (s *Session) publish(snap Snapshot) {
	select {
	case <-s.updates:
	default:
	}
	s.updates <- snap
}
