package transcript

import (
	"math"
	"sort"
)

// SegmentIndex returns the index of the segment whose [StartTime, EndTime)
// contains t, or -1. segs must be in non-decreasing StartTime order.
//
// The search finds the last segment starting at or before t and then checks
// t against its end, so a gap resolves to -1 rather than the nearest segment.
// At a shared boundary (end_i == start_i+1) the later segment wins.
func SegmentIndex(segs []Segment, t float64) int {
	if math.IsNaN(t) {
		return -1
	}
	i := sort.Search(len(segs), func(i int) bool { return segs[i].StartTime > t }) - 1
	if i < 0 || t >= segs[i].EndTime {
		return -1
	}
	return i
}

// WordAt resolves the active word within this segment only, using the same
// search-then-verify rule as SegmentIndex. Returns -1 when no word is active.
func (s Segment) WordAt(t float64) int {
	if math.IsNaN(t) {
		return -1
	}
	words := s.Words
	i := sort.Search(len(words), func(i int) bool { return words[i].Start > t }) - 1
	if i < 0 || t >= words[i].End {
		return -1
	}
	return i
}

// Resolve resolves segment and word from the same t.
func Resolve(segs []Segment, t float64) Position {
	si := SegmentIndex(segs, t)
	if si < 0 {
		return None
	}
	return Position{Segment: si, Word: segs[si].WordAt(t)}
}
