package playback

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwulff/meetsync/internal/transcript"
)

// manualSource is a media clock the test moves by hand.
type manualSource struct {
	pos      float64
	duration float64
	playing  bool
	seekErr  error
	seeks    []float64
}

func (m *manualSource) Position() float64 { return m.pos }
func (m *manualSource) Duration() float64 { return m.duration }
func (m *manualSource) Playing() bool     { return m.playing }
func (m *manualSource) Play() error       { m.playing = true; return nil }
func (m *manualSource) Pause() error      { m.playing = false; return nil }
func (m *manualSource) Seek(t float64) error {
	m.seeks = append(m.seeks, t)
	if m.seekErr != nil {
		return m.seekErr
	}
	m.pos = t
	return nil
}

func testTranscript() *transcript.Transcript {
	return transcript.New([]transcript.Segment{
		{StartTime: 0, EndTime: 10, Words: []transcript.Word{{Text: "hi", Start: 0, End: 1}}},
		{StartTime: 12, EndTime: 20, Words: []transcript.Word{{Text: "a", Start: 12, End: 13}, {Text: "b", Start: 13, End: 14}}},
	})
}

func TestSeekToIdempotent(t *testing.T) {
	src := &manualSource{duration: 30}
	c := New(src, testTranscript(), zerolog.Nop())

	first, err := c.SeekTo(5)
	if err != nil {
		t.Fatalf("seek: %v", err)
	}
	second, err := c.SeekTo(5)
	if err != nil {
		t.Fatalf("seek: %v", err)
	}

	if c.Position() != 5 {
		t.Errorf("position = %v, want 5", c.Position())
	}
	if first.Active != second.Active || first.Active.Segment != 0 {
		t.Errorf("active = %+v then %+v, want segment 0 twice", first.Active, second.Active)
	}
	if !first.SegmentChanged {
		t.Error("first seek should change segment")
	}
	if second.SegmentChanged || second.WordChanged {
		t.Error("second seek to the same place should change nothing")
	}
}

func TestSeekClamps(t *testing.T) {
	src := &manualSource{duration: 30}
	c := New(src, testTranscript(), zerolog.Nop())

	tests := map[float64]float64{-4: 0, 12.5: 12.5, 99: 30}
	for in, want := range tests {
		u, _ := c.SeekTo(in)
		if u.Position != want || c.Position() != want {
			t.Errorf("SeekTo(%v) position = %v, want %v", in, c.Position(), want)
		}
	}
}

func TestSeekIsOptimistic(t *testing.T) {
	src := &manualSource{duration: 30, seekErr: errors.New("not ready")}
	c := New(src, testTranscript(), zerolog.Nop())

	u, err := c.SeekTo(13.5)
	if err == nil {
		t.Error("expected source error")
	}
	if c.Position() != 13.5 {
		t.Errorf("position = %v, want 13.5 despite source error", c.Position())
	}
	if u.Active != (transcript.Position{Segment: 1, Word: 1}) {
		t.Errorf("active = %+v", u.Active)
	}
}

func TestTickChangeFlags(t *testing.T) {
	src := &manualSource{duration: 30}
	c := New(src, testTranscript(), zerolog.Nop())

	steps := []struct {
		at          float64
		segment     int
		word        int
		segChanged  bool
		wordChanged bool
	}{
		{0.5, 0, 0, true, true},
		{0.9, 0, 0, false, false},
		{5, 0, -1, false, true},  // left the word, same segment
		{11, -1, -1, true, true}, // gap
		{12.2, 1, 0, true, true},
		{13.1, 1, 1, false, true},
		{10, -1, -1, true, true}, // end boundary is exclusive
	}
	for _, s := range steps {
		src.pos = s.at
		u := c.Tick()
		if u.Active.Segment != s.segment || u.Active.Word != s.word {
			t.Errorf("t=%v active = %+v, want (%d,%d)", s.at, u.Active, s.segment, s.word)
		}
		if u.SegmentChanged != s.segChanged || u.WordChanged != s.wordChanged {
			t.Errorf("t=%v changed = (%v,%v), want (%v,%v)", s.at, u.SegmentChanged, u.WordChanged, s.segChanged, s.wordChanged)
		}
	}
}

func TestDurationFallsBackToTranscript(t *testing.T) {
	c := New(&manualSource{}, testTranscript(), zerolog.Nop())
	if d := c.Duration(); d != 20 {
		t.Errorf("duration = %v, want 20", d)
	}
}

func TestToggle(t *testing.T) {
	src := &manualSource{duration: 30}
	c := New(src, testTranscript(), zerolog.Nop())
	c.Toggle()
	if !c.Playing() {
		t.Error("toggle should start playback")
	}
	c.Toggle()
	if c.Playing() {
		t.Error("second toggle should pause")
	}
}

func TestNeedsScroll(t *testing.T) {
	view := Span{Top: 10, Bottom: 20}
	tests := []struct {
		elem Span
		want bool
	}{
		{Span{12, 14}, false},
		{Span{10, 20}, false},
		{Span{8, 12}, true},  // partially above
		{Span{19, 21}, true}, // partially below
		{Span{30, 32}, true},
	}
	for _, tt := range tests {
		if got := NeedsScroll(tt.elem, view); got != tt.want {
			t.Errorf("NeedsScroll(%+v) = %v, want %v", tt.elem, got, tt.want)
		}
	}
}

func TestFollowCentres(t *testing.T) {
	view := Span{Top: 0, Bottom: 10}

	if top, moved := Follow(Span{3, 5}, view, 100); moved || top != 0 {
		t.Errorf("visible element moved viewport to %d", top)
	}
	top, moved := Follow(Span{40, 42}, view, 100)
	if !moved || top != 36 {
		t.Errorf("Follow = %d, %v, want 36, true", top, moved)
	}
	if top := CenterOn(Span{98, 100}, 10, 100); top != 90 {
		t.Errorf("CenterOn near end = %d, want 90", top)
	}
	if top := CenterOn(Span{1, 2}, 10, 100); top != 0 {
		t.Errorf("CenterOn near start = %d, want 0", top)
	}
}

func TestPlayerClock(t *testing.T) {
	now := time.Unix(0, 0)
	p := NewPlayer(10)
	p.now = func() time.Time { return now }

	p.Play()
	now = now.Add(3 * time.Second)
	if got := p.Position(); got != 3 {
		t.Errorf("position = %v, want 3", got)
	}

	p.Pause()
	now = now.Add(5 * time.Second)
	if got := p.Position(); got != 3 {
		t.Errorf("paused position = %v, want 3", got)
	}

	if err := p.Seek(8); err != nil {
		t.Fatalf("seek: %v", err)
	}
	p.Play()
	now = now.Add(5 * time.Second)
	if got := p.Position(); got != 10 {
		t.Errorf("position past end = %v, want 10", got)
	}
	if p.Playing() {
		t.Error("player should stop at the end")
	}

	p.Play()
	if got := p.Position(); got != 0 {
		t.Errorf("replay position = %v, want 0", got)
	}
	if err := p.Seek(11); err == nil {
		t.Error("seek beyond duration should fail")
	}
}

func TestEndToEndHighlight(t *testing.T) {
	tr := transcript.New([]transcript.Segment{
		{StartTime: 0, EndTime: 10, Words: []transcript.Word{{Text: "hi", Start: 0, End: 1}}},
	})
	src := &manualSource{duration: 10}
	c := New(src, tr, zerolog.Nop())

	for at, want := range map[float64]transcript.Position{
		0.5: {Segment: 0, Word: 0},
		5:   {Segment: 0, Word: -1},
		10:  transcript.None,
	} {
		u, _ := c.SeekTo(at)
		if u.Active != want {
			t.Errorf("SeekTo(%v) active = %+v, want %+v", at, u.Active, want)
		}
	}
}
