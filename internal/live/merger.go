package live

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwulff/meetsync/internal/backend"
	"github.com/jwulff/meetsync/internal/transcript"
)

// ConnState is the subscription state of a live session.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateJoined
	StateReceiving // a provisional line is pending
	StateIdle      // joined, nothing pending
	StateDisconnected
	StateEnded
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateReceiving:
		return "receiving"
	case StateIdle:
		return "idle"
	case StateDisconnected:
		return "disconnected"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// Event is an input to Merger.Dispatch.
type Event interface{ isEvent() }

// Dialing means a connection attempt has begun. Attempt 0 is the first dial.
type Dialing struct{ Attempt int }

// Joined means the join for the session's meeting was issued or confirmed.
type Joined struct{}

// Update is a transcript_update payload.
type Update struct {
	MeetingID string
	Raw       json.RawMessage
}

// Malformed is a message the transport could not decode.
type Malformed struct{ Err error }

// Dropped means the transport failed.
type Dropped struct{ Err error }

// StatusPolled carries one bot status poll result.
type StatusPolled struct {
	Status backend.BotStatus
	Err    error
}

func (Dialing) isEvent()      {}
func (Joined) isEvent()       {}
func (Update) isEvent()       {}
func (Malformed) isEvent()    {}
func (Dropped) isEvent()      {}
func (StatusPolled) isEvent() {}

// Signal tells the runner what an event caused.
type Signal struct {
	Changed   bool
	Reconnect bool
	Ended     bool
	Appended  *transcript.Segment
}

// Snapshot is a read-only view of a live session.
type Snapshot struct {
	MeetingID    string
	State        ConnState
	Segments     []transcript.Segment
	Provisional  string
	Reconnecting bool
	Attempt      int
	Status       backend.BotStatus
	Gaps         int
	Malformed    int
}

// Merger folds live events into a transcript. It is not safe for concurrent
// use; one goroutine dispatches every event.
type Merger struct {
	meetingID string
	tr        *transcript.Transcript
	log       zerolog.Logger
	newID     func() string

	state       ConnState
	provisional string
	attempt     int
	status      backend.BotStatus
	gaps        int
	malformed   int
}

// NewMerger returns a merger appending to tr for meetingID.
func NewMerger(meetingID string, tr *transcript.Transcript, log zerolog.Logger) *Merger {
	if tr == nil {
		tr = transcript.New(nil)
	}
	return &Merger{
		meetingID: meetingID,
		tr:        tr,
		log:       log,
		newID:     uuid.NewString,
	}
}

// Transcript returns the transcript being built.
func (m *Merger) Transcript() *transcript.Transcript { return m.tr }

// State returns the current connection state.
func (m *Merger) State() ConnState { return m.state }

// Dispatch applies one event. Events after the session ended are ignored.
func (m *Merger) Dispatch(ev Event) Signal {
	if m.state == StateEnded {
		return Signal{}
	}

	switch e := ev.(type) {
	case Dialing:
		m.attempt = e.Attempt
		m.state = StateConnecting
		return Signal{Changed: true}

	case Joined:
		if m.state != StateConnecting && m.state != StateDisconnected {
			return Signal{}
		}
		m.state = StateJoined
		m.attempt = 0
		m.log.Info().Str("meeting", m.meetingID).Msg("joined meeting")
		return Signal{Changed: true}

	case Update:
		return m.update(e)

	case Malformed:
		m.malformed++
		m.log.Warn().Err(e.Err).Msg("dropping malformed message")
		return Signal{}

	case Dropped:
		m.state = StateDisconnected
		m.provisional = ""
		m.gaps++
		m.log.Warn().Err(e.Err).Int("gaps", m.gaps).Msg("live channel dropped")
		return Signal{Changed: true, Reconnect: true}

	case StatusPolled:
		if e.Err != nil {
			m.log.Warn().Err(e.Err).Msg("bot status poll failed")
			return Signal{}
		}
		changed := e.Status != m.status
		m.status = e.Status
		if e.Status.Inactive() {
			m.state = StateEnded
			m.provisional = ""
			m.log.Info().Str("meeting", m.meetingID).Int("segments", m.tr.Len()).Msg("bot inactive, session ended")
			return Signal{Changed: true, Ended: true}
		}
		return Signal{Changed: changed}
	}
	return Signal{}
}

func (m *Merger) update(e Update) Signal {
	if e.MeetingID != m.meetingID {
		m.log.Debug().Str("meeting", e.MeetingID).Msg("ignoring update for other meeting")
		return Signal{}
	}
	frag, err := ParseFragment(e.Raw)
	if err != nil {
		m.malformed++
		m.log.Warn().Err(err).Msg("dropping malformed fragment")
		return Signal{}
	}

	if !frag.IsFinal {
		m.provisional = frag.Text
		m.state = StateReceiving
		return Signal{Changed: true}
	}

	seg := m.segmentFor(frag)
	if err := m.tr.Append(seg); err != nil {
		// segmentFor clamps to the tail, so this only fires on a programming error.
		m.log.Error().Err(err).Msg("append final fragment")
		return Signal{}
	}
	m.provisional = ""
	m.state = StateIdle
	return Signal{Changed: true, Appended: &seg}
}

// segmentFor builds the segment for a final fragment. Timing comes from the
// word list; without words the segment is untimed at the previous end. Starts
// before the tail's end are clamped to it so segments never overlap.
func (m *Merger) segmentFor(f Fragment) transcript.Segment {
	seg := transcript.Segment{
		ID:    m.newID(),
		Text:  strings.TrimSpace(f.Text),
		Words: f.Words,
	}

	tail, hasTail := m.tr.Tail()
	if len(f.Words) > 0 {
		seg.StartTime = f.Words[0].Start
		seg.EndTime = f.Words[len(f.Words)-1].End
	} else if hasTail {
		seg.StartTime = tail.EndTime
		seg.EndTime = tail.EndTime
	}

	if floor := max(tail.StartTime, tail.EndTime); hasTail && seg.StartTime < floor {
		m.log.Debug().Float64("start", seg.StartTime).Float64("tail_end", floor).Msg("clamping overlapping final")
		seg.StartTime = floor
	}
	if seg.EndTime < seg.StartTime {
		seg.EndTime = seg.StartTime
	}
	return seg
}

// Snapshot returns a copy of the merger state.
func (m *Merger) Snapshot() Snapshot {
	return Snapshot{
		MeetingID:    m.meetingID,
		State:        m.state,
		Segments:     m.tr.Segments(),
		Provisional:  m.provisional,
		Reconnecting: (m.state == StateConnecting && m.attempt > 0) || m.state == StateDisconnected,
		Attempt:      m.attempt,
		Status:       m.status,
		Gaps:         m.gaps,
		Malformed:    m.malformed,
	}
}
