package transcript

import (
	"math"
	"math/rand"
	"testing"
)

func TestResolveEndToEnd(t *testing.T) {
	segs := []Segment{{StartTime: 0, EndTime: 10, Words: []Word{{Text: "hi", Start: 0, End: 1}}}}

	tests := []struct {
		at   float64
		want Position
	}{
		{0.5, Position{Segment: 0, Word: 0}},
		{5, Position{Segment: 0, Word: -1}},
		{10, None},
		{-1, None},
		{math.NaN(), None},
	}
	for _, tt := range tests {
		if got := Resolve(segs, tt.at); got != tt.want {
			t.Errorf("Resolve(%v) = %+v, want %+v", tt.at, got, tt.want)
		}
	}
}

func TestSegmentIndexGapsAndBoundaries(t *testing.T) {
	segs := []Segment{
		{StartTime: 0, EndTime: 2},
		{StartTime: 2, EndTime: 4},
		{StartTime: 6, EndTime: 8},
	}

	tests := []struct {
		at   float64
		want int
	}{
		{0, 0},
		{1.999, 0},
		{2, 1}, // shared boundary belongs to the later segment
		{3.5, 1},
		{4, -1},
		{5, -1}, // gap: nothing highlighted
		{6, 2},
		{8, -1},
		{100, -1},
	}
	for _, tt := range tests {
		if got := SegmentIndex(segs, tt.at); got != tt.want {
			t.Errorf("SegmentIndex(%v) = %d, want %d", tt.at, got, tt.want)
		}
	}
}

func TestSegmentIndexEmpty(t *testing.T) {
	if got := SegmentIndex(nil, 1); got != -1 {
		t.Errorf("empty transcript = %d, want -1", got)
	}
}

func TestWordAtZeroWords(t *testing.T) {
	seg := Segment{StartTime: 0, EndTime: 5}
	if got := seg.WordAt(1); got != -1 {
		t.Errorf("WordAt on segment without words = %d, want -1", got)
	}
}

func TestUntimedSegmentNeverActive(t *testing.T) {
	segs := []Segment{
		{StartTime: 0, EndTime: 3},
		{StartTime: 3, EndTime: 3, Text: "no timing"},
		{StartTime: 4, EndTime: 6},
	}
	if got := SegmentIndex(segs, 3); got != -1 {
		t.Errorf("SegmentIndex(3) = %d, want -1", got)
	}
	if got := SegmentIndex(segs, 2.5); got != 0 {
		t.Errorf("SegmentIndex(2.5) = %d, want 0", got)
	}
}

// Word resolution looks only at the resolved segment, even when another
// segment carries a word covering t.
func TestWordResolutionScopedToSegment(t *testing.T) {
	segs := []Segment{
		{StartTime: 0, EndTime: 5, Words: []Word{{Text: "stray", Start: 6, End: 7}}},
		{StartTime: 5, EndTime: 10, Words: []Word{{Text: "a", Start: 5, End: 5.5}}},
	}
	got := Resolve(segs, 6.5)
	if got.Segment != 1 {
		t.Fatalf("segment = %d, want 1", got.Segment)
	}
	if got.Word != -1 {
		t.Errorf("word = %d, want -1 (stray word belongs to segment 0)", got.Word)
	}
}

func linearIndex(segs []Segment, t float64) int {
	for i, s := range segs {
		if s.Contains(t) {
			return i
		}
	}
	return -1
}

func randomSegments(r *rand.Rand, n int) []Segment {
	segs := make([]Segment, 0, n)
	at := r.Float64() * 2
	for i := 0; i < n; i++ {
		start := at
		end := start + 0.1 + r.Float64()*3
		if r.Intn(3) == 0 {
			at = end // touching neighbour
		} else {
			at = end + r.Float64()*2 // gap
		}
		segs = append(segs, Segment{StartTime: start, EndTime: end})
	}
	return segs
}

func TestSegmentIndexMatchesLinearScan(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		segs := randomSegments(r, r.Intn(40))

		whole := New(segs)
		grown := New(nil)
		for _, s := range segs {
			if err := grown.Append(s); err != nil {
				t.Fatalf("append: %v", err)
			}
		}

		for q := 0; q < 200; q++ {
			at := r.Float64()*120 - 5
			want := linearIndex(segs, at)
			if got := whole.SegmentAt(at); got != want {
				t.Fatalf("round %d: batch SegmentAt(%v) = %d, want %d", round, at, got, want)
			}
			if got := grown.SegmentAt(at); got != want {
				t.Fatalf("round %d: incremental SegmentAt(%v) = %d, want %d", round, at, got, want)
			}
		}
		for i, s := range segs {
			if got := whole.SegmentAt(s.StartTime); got != i {
				t.Fatalf("round %d: SegmentAt(start of %d) = %d", round, i, got)
			}
		}
	}
}

func TestAppendKeepsEarlierResults(t *testing.T) {
	tr := New([]Segment{{StartTime: 0, EndTime: 2}, {StartTime: 3, EndTime: 5}})
	before := tr.SegmentAt(4)

	if err := tr.Append(Segment{StartTime: 6, EndTime: 9}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if after := tr.SegmentAt(4); after != before {
		t.Errorf("SegmentAt(4) after append = %d, want %d", after, before)
	}
	if got := tr.SegmentAt(7); got != 2 {
		t.Errorf("SegmentAt(7) = %d, want 2", got)
	}
}
