// Package transcript holds the time-indexed transcript model and the
// synchronization index that resolves the active segment and word for a
// playback position.
package transcript

// Word is a single timed word. Start and End are seconds from recording
// start and form the half-open interval [Start, End).
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is a contiguous spoken turn.
type Segment struct {
	ID        string  `json:"segment_id,omitempty"`
	Speaker   string  `json:"speaker_name,omitempty"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Words     []Word  `json:"words,omitempty"`
	Text      string  `json:"text"`
}

// Timed reports whether the segment covers a non-empty interval. Untimed
// segments keep their place in history but are never active.
func (s Segment) Timed() bool {
	return s.StartTime < s.EndTime
}

// Contains reports whether t lies in [StartTime, EndTime).
func (s Segment) Contains(t float64) bool {
	return s.StartTime <= t && t < s.EndTime
}

// DisplayText returns Text, or the words joined by spaces when Text is empty.
func (s Segment) DisplayText() string {
	if s.Text != "" || len(s.Words) == 0 {
		return s.Text
	}
	n := len(s.Words) - 1
	for _, w := range s.Words {
		n += len(w.Text)
	}
	b := make([]byte, 0, n)
	for i, w := range s.Words {
		if i > 0 {
			b = append(b, ' ')
		}
		b = append(b, w.Text...)
	}
	return string(b)
}

// anomalies counts words that fall outside the segment interval or run
// backwards. Upstream data may do this; it is tolerated, not rejected.
func (s Segment) anomalies() int {
	if !s.Timed() {
		return 0
	}
	n := 0
	prev := s.StartTime
	for _, w := range s.Words {
		if w.Start < s.StartTime || w.End > s.EndTime || w.Start < prev {
			n++
		}
		if w.Start > prev {
			prev = w.Start
		}
	}
	return n
}

// Position is a resolved playback position. -1 means none.
type Position struct {
	Segment int
	Word    int
}

// None is the position with nothing active.
var None = Position{Segment: -1, Word: -1}

// Active reports whether a segment is active.
func (p Position) Active() bool { return p.Segment >= 0 }
