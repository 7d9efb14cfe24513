package app

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jwulff/meetsync/internal/playback"
	"github.com/jwulff/meetsync/internal/transcript"
)

// fakeSource is a media clock the test moves by hand.
type fakeSource struct {
	pos     float64
	dur     float64
	playing bool
	seeks   []float64
}

func (f *fakeSource) Position() float64 { return f.pos }
func (f *fakeSource) Duration() float64 { return f.dur }
func (f *fakeSource) Playing() bool     { return f.playing }
func (f *fakeSource) Play() error       { f.playing = true; return nil }
func (f *fakeSource) Pause() error      { f.playing = false; return nil }
func (f *fakeSource) Seek(t float64) error {
	f.seeks = append(f.seeks, t)
	f.pos = t
	return nil
}

func updateReview(t *testing.T, m ReviewModel, msg tea.Msg) (ReviewModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(ReviewModel), cmd
}

func newTestReview(t *testing.T, segs []transcript.Segment, dur float64, height int) (ReviewModel, *fakeSource) {
	t.Helper()
	src := &fakeSource{dur: dur}
	tr := transcript.New(segs)
	coord := playback.New(src, tr, zerolog.Nop())
	m := NewReview("Standup", coord, tr, 50*time.Millisecond, 5*time.Second)
	m, _ = updateReview(t, m, tea.WindowSizeMsg{Width: 80, Height: height})
	return m, src
}

func TestReviewTickHighlights(t *testing.T) {
	segs := []transcript.Segment{
		{ID: "a", Speaker: "Ana", StartTime: 0, EndTime: 10, Text: "hi there",
			Words: []transcript.Word{{Text: "hi", Start: 0, End: 1}, {Text: "there", Start: 1, End: 2}}},
		{ID: "b", StartTime: 10, EndTime: 20, Text: "second"},
	}
	m, src := newTestReview(t, segs, 20, 24)

	src.pos = 0.5
	m, cmd := updateReview(t, m, PlaybackTickMsg{})
	if cmd == nil {
		t.Error("tick should re-arm")
	}
	if m.active != (transcript.Position{Segment: 0, Word: 0}) {
		t.Errorf("active = %+v, want {0 0}", m.active)
	}

	src.pos = 1.5
	m, _ = updateReview(t, m, PlaybackTickMsg{})
	if m.active != (transcript.Position{Segment: 0, Word: 1}) {
		t.Errorf("active = %+v, want {0 1}", m.active)
	}

	// Past the last word but inside the segment.
	src.pos = 5
	m, _ = updateReview(t, m, PlaybackTickMsg{})
	if m.active != (transcript.Position{Segment: 0, Word: -1}) {
		t.Errorf("active = %+v, want {0 -1}", m.active)
	}

	src.pos = 12
	m, _ = updateReview(t, m, PlaybackTickMsg{})
	if m.active.Segment != 1 || m.selected != 1 {
		t.Errorf("active = %+v selected = %d, want segment 1", m.active, m.selected)
	}

	view := m.View()
	for _, want := range []string{"Ana:", "hi there", "second", "0:12 / 0:20", "segment 2/2"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestReviewSeekKeys(t *testing.T) {
	segs := []transcript.Segment{
		{StartTime: 0, EndTime: 10, Text: "one"},
		{StartTime: 10, EndTime: 20, Text: "two"},
	}
	m, src := newTestReview(t, segs, 20, 24)

	// Select the second segment and jump to it.
	m, _ = updateReview(t, m, key("j"))
	if m.selected != 1 {
		t.Fatalf("selected = %d, want 1", m.selected)
	}
	m, cmd := updateReview(t, m, key("enter"))
	if cmd == nil {
		t.Fatal("enter should seek")
	}
	m, _ = updateReview(t, m, cmd())
	if m.coord.Position() != 10 || m.position != 10 {
		t.Errorf("position = %v / %v, want 10", m.coord.Position(), m.position)
	}
	if m.active.Segment != 1 {
		t.Errorf("active = %+v, want segment 1", m.active)
	}

	// Right seeks forward by the step and clamps at the end.
	m, cmd = updateReview(t, m, key("right"))
	m, _ = updateReview(t, m, cmd())
	m, cmd = updateReview(t, m, key("right"))
	m, _ = updateReview(t, m, cmd())
	if m.coord.Position() != 20 {
		t.Errorf("position = %v, want clamped 20", m.coord.Position())
	}

	// Left seeks back.
	m, cmd = updateReview(t, m, key("left"))
	m, _ = updateReview(t, m, cmd())
	if m.coord.Position() != 15 {
		t.Errorf("position = %v, want 15", m.coord.Position())
	}

	want := []float64{10, 15, 20, 15}
	if len(src.seeks) != len(want) {
		t.Fatalf("seeks = %v, want %v", src.seeks, want)
	}
	for i := range want {
		if src.seeks[i] != want[i] {
			t.Errorf("seeks[%d] = %v, want %v", i, src.seeks[i], want[i])
		}
	}
}

func TestReviewWordStep(t *testing.T) {
	segs := []transcript.Segment{
		{StartTime: 0, EndTime: 10, Text: "hi there all",
			Words: []transcript.Word{{Text: "hi", Start: 0, End: 1}, {Text: "there", Start: 1, End: 2}, {Text: "all", Start: 2.5, End: 3}}},
		{StartTime: 10, EndTime: 20, Text: "untimed words"},
	}
	m, src := newTestReview(t, segs, 20, 24)

	src.pos = 1.5
	m, _ = updateReview(t, m, PlaybackTickMsg{})

	step := func(k string) tea.Cmd {
		t.Helper()
		var cmd tea.Cmd
		m, cmd = updateReview(t, m, key(k))
		if cmd != nil {
			m, _ = updateReview(t, m, cmd())
		}
		return cmd
	}

	step("shift+right")
	if m.coord.Position() != 2.5 || m.active != (transcript.Position{Segment: 0, Word: 2}) {
		t.Errorf("after next word: position = %v active = %+v, want 2.5 on word 2", m.coord.Position(), m.active)
	}
	if cmd := step("shift+right"); cmd != nil {
		t.Error("no word after the last one")
	}

	step("shift+left")
	step("shift+left")
	if m.coord.Position() != 0 || m.active.Word != 0 {
		t.Errorf("after two back: position = %v active = %+v, want word 0", m.coord.Position(), m.active)
	}
	if cmd := step("shift+left"); cmd != nil {
		t.Error("no word before the first one")
	}

	want := []float64{2.5, 1, 0}
	if len(src.seeks) != len(want) {
		t.Fatalf("seeks = %v, want %v", src.seeks, want)
	}
	for i := range want {
		if src.seeks[i] != want[i] {
			t.Errorf("seeks[%d] = %v, want %v", i, src.seeks[i], want[i])
		}
	}

	// A segment without words has nothing to step through.
	m, cmd := updateReview(t, m, key("j"))
	m, cmd = updateReview(t, m, key("enter"))
	m, _ = updateReview(t, m, cmd())
	if cmd := step("shift+right"); cmd != nil {
		t.Error("untimed segment should not step")
	}
}

func TestReviewToggle(t *testing.T) {
	m, src := newTestReview(t, []transcript.Segment{{StartTime: 0, EndTime: 1, Text: "x"}}, 1, 24)

	m, _ = updateReview(t, m, key(" "))
	if !src.playing || !m.playing {
		t.Error("space should start playback")
	}
	if !strings.Contains(m.View(), "PLAYING") {
		t.Errorf("view should show PLAYING:\n%s", m.View())
	}
	m, _ = updateReview(t, m, key(" "))
	if src.playing || m.playing {
		t.Error("space again should pause")
	}
}

func TestReviewAutoScroll(t *testing.T) {
	var segs []transcript.Segment
	for i := range 30 {
		segs = append(segs, transcript.Segment{StartTime: float64(i * 2), EndTime: float64(i*2 + 2), Text: "line"})
	}
	// Height 13 leaves five transcript rows.
	m, src := newTestReview(t, segs, 60, 13)
	if m.visibleLines() != 5 {
		t.Fatalf("visibleLines = %d, want 5", m.visibleLines())
	}

	src.pos = 3 // segment 1, already visible
	m, _ = updateReview(t, m, PlaybackTickMsg{})
	if m.top != 0 {
		t.Errorf("top = %d, want 0 while visible", m.top)
	}

	src.pos = 41 // segment 20, off screen
	m, _ = updateReview(t, m, PlaybackTickMsg{})
	if m.top != 18 {
		t.Errorf("top = %d, want 18 (segment 20 centred)", m.top)
	}

	// Manual navigation stops following until the next seek or play.
	m, _ = updateReview(t, m, key("k"))
	if m.follow {
		t.Error("k should stop auto-follow")
	}
	src.pos = 59
	m, _ = updateReview(t, m, PlaybackTickMsg{})
	if m.top != 18 {
		t.Errorf("top = %d, want 18 while not following", m.top)
	}
}

func TestWrapTokens(t *testing.T) {
	got := wrapTokens([]string{"aaa", "bb", "cccc", "d"}, 6)
	want := [][]int{{0, 1}, {2, 3}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Errorf("got %v, want %v", got, want)
			}
		}
	}

	if empty := wrapTokens(nil, 10); len(empty) != 1 || empty[0] != nil {
		t.Errorf("wrapTokens(nil) = %v, want one empty line", empty)
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("the quick brown fox", 9)
	want := []string{"the quick", "brown fox"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("wrapText = %q, want %q", got, want)
	}
}
