package transcript

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrOutOfOrder is returned by Append when a segment starts before the
// current tail.
var ErrOutOfOrder = errors.New("segment starts before transcript tail")

// Transcript is an ordered, append-only sequence of segments owned by one
// meeting. It has a single writer (the live merger or a reload) and any
// number of readers; readers only ever receive copies.
type Transcript struct {
	mu        sync.RWMutex
	segments  []Segment
	anomalies int
}

// New returns a transcript holding segs, sorted by StartTime.
func New(segs []Segment) *Transcript {
	t := &Transcript{}
	t.Replace(segs)
	return t
}

// Append adds seg at the tail. The append boundary enforces the ordering
// invariant the index relies on: seg must not start before the last segment.
// Prior search results stay valid because only ordering is required.
func (t *Transcript) Append(seg Segment) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.segments); n > 0 && seg.StartTime < t.segments[n-1].StartTime {
		return fmt.Errorf("%w: start %.3f < tail start %.3f", ErrOutOfOrder, seg.StartTime, t.segments[n-1].StartTime)
	}
	t.segments = append(t.segments, seg)
	t.anomalies += seg.anomalies()
	return nil
}

// Replace swaps the whole transcript, as after reprocessing. Input that is
// not in StartTime order is stably sorted.
func (t *Transcript) Replace(segs []Segment) {
	cp := make([]Segment, len(segs))
	copy(cp, segs)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].StartTime < cp[j].StartTime })

	n := 0
	for _, s := range cp {
		n += s.anomalies()
	}

	t.mu.Lock()
	t.segments = cp
	t.anomalies = n
	t.mu.Unlock()
}

// Len returns the number of segments.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.segments)
}

// Tail returns the last segment, if any.
func (t *Transcript) Tail() (Segment, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.segments) == 0 {
		return Segment{}, false
	}
	return t.segments[len(t.segments)-1], true
}

// Segments returns a copy of all segments.
func (t *Transcript) Segments() []Segment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cp := make([]Segment, len(t.segments))
	copy(cp, t.segments)
	return cp
}

// Segment returns a copy of segment i.
func (t *Transcript) Segment(i int) (Segment, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 || i >= len(t.segments) {
		return Segment{}, false
	}
	return t.segments[i], true
}

// Anomalies returns how many words fell outside their segment or ran backwards.
func (t *Transcript) Anomalies() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.anomalies
}

// Duration returns the end of the latest-ending segment.
func (t *Transcript) Duration() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var d float64
	for _, s := range t.segments {
		if s.EndTime > d {
			d = s.EndTime
		}
	}
	return d
}

// SegmentAt returns the index of the segment active at at, or -1.
func (t *Transcript) SegmentAt(at float64) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return SegmentIndex(t.segments, at)
}

// Resolve resolves the active segment and word for at under one read lock.
func (t *Transcript) Resolve(at float64) Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Resolve(t.segments, at)
}
