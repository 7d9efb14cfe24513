package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/meetsync/internal/backend"
	"github.com/jwulff/meetsync/internal/live"
	"github.com/jwulff/meetsync/internal/transcript"
)

type fakeBot struct {
	stopped []string
	err     error
}

func (f *fakeBot) StopBot(_ context.Context, id string) (backend.StopResult, error) {
	f.stopped = append(f.stopped, id)
	return backend.StopResult{MeetingID: id}, f.err
}

func updateLive(t *testing.T, m LiveModel, msg tea.Msg) (LiveModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(LiveModel), cmd
}

func TestLiveRendersSnapshot(t *testing.T) {
	updates := make(chan live.Snapshot, 1)
	m := NewLive("m-1", updates, &fakeBot{}, func() {})
	m, _ = updateLive(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	snap := live.Snapshot{
		MeetingID: "m-1",
		State:     live.StateReceiving,
		Segments: []transcript.Segment{
			{ID: "a", Speaker: "Ana", StartTime: 0, EndTime: 2, Text: "good morning"},
		},
		Provisional: "how are",
		Status:      backend.BotStatus{Status: "active", IsRecording: true, Duration: 125},
	}
	m, cmd := updateLive(t, m, LiveUpdateMsg{Snapshot: snap})
	if cmd == nil {
		t.Error("update should re-arm the listener")
	}

	view := m.View()
	for _, want := range []string{"Ana: good morning", "how are▌", "RECEIVING", "REC", "2m 5s", "1 segments"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestLiveReconnectingIndicator(t *testing.T) {
	m := NewLive("m-1", nil, nil, nil)
	m, _ = updateLive(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = updateLive(t, m, LiveUpdateMsg{Snapshot: live.Snapshot{
		State: live.StateConnecting, Reconnecting: true, Attempt: 2, Gaps: 1,
	}})

	view := m.View()
	if !strings.Contains(view, "Reconnecting (attempt 2)") {
		t.Errorf("view should show reconnecting:\n%s", view)
	}
	if !strings.Contains(view, "1 gaps") {
		t.Errorf("view should show the gap count:\n%s", view)
	}
}

func TestLiveStopBot(t *testing.T) {
	bot := &fakeBot{}
	m := NewLive("m-1", nil, bot, nil)

	m, cmd := updateLive(t, m, key("s"))
	if cmd == nil {
		t.Fatal("s should stop the bot")
	}
	if !m.stopping {
		t.Error("should be stopping")
	}
	// A second press while in flight is ignored.
	if _, again := updateLive(t, m, key("s")); again != nil {
		t.Error("second s should be ignored while stopping")
	}

	m, _ = updateLive(t, m, cmd())
	if len(bot.stopped) != 1 || bot.stopped[0] != "m-1" {
		t.Errorf("stopped = %v", bot.stopped)
	}
	if m.stopping || m.errorMessage != "" {
		t.Errorf("stopping=%v error=%q", m.stopping, m.errorMessage)
	}
}

func TestLiveStopBotError(t *testing.T) {
	bot := &fakeBot{err: errors.New("stop bot failed (HTTP 502)")}
	m := NewLive("m-1", nil, bot, nil)

	m, cmd := updateLive(t, m, key("s"))
	m, clearCmd := updateLive(t, m, cmd())
	if !strings.Contains(m.errorMessage, "502") {
		t.Errorf("errorMessage = %q", m.errorMessage)
	}
	if clearCmd == nil {
		t.Error("error should be transient")
	}
	m, _ = updateLive(t, m, ClearTransientErrorMsg{})
	if m.errorMessage != "" {
		t.Errorf("errorMessage = %q after clear", m.errorMessage)
	}
}

func TestLiveClosed(t *testing.T) {
	updates := make(chan live.Snapshot)
	close(updates)
	m := NewLive("m-1", updates, &fakeBot{}, nil)
	m, _ = updateLive(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m, _ = updateLive(t, m, m.Init()())
	if !m.closed {
		t.Fatal("closed channel should mark the session closed")
	}
	if !strings.Contains(m.View(), "ENDED") {
		t.Errorf("view should show ENDED:\n%s", m.View())
	}
	if _, cmd := updateLive(t, m, key("s")); cmd != nil {
		t.Error("s after end should do nothing")
	}
}

func TestLiveQuitCancels(t *testing.T) {
	cancelled := false
	m := NewLive("m-1", nil, nil, func() { cancelled = true })

	_, cmd := updateLive(t, m, key("q"))
	if cmd == nil {
		t.Error("q should quit")
	}
	if !cancelled {
		t.Error("q should cancel the session")
	}
}

func TestLiveScrollLeavesFollow(t *testing.T) {
	m := NewLive("m-1", nil, nil, nil)
	m, _ = updateLive(t, m, tea.WindowSizeMsg{Width: 80, Height: 12})

	var segs []transcript.Segment
	for i := range 20 {
		segs = append(segs, transcript.Segment{StartTime: float64(i), EndTime: float64(i + 1), Text: "line"})
	}
	m, _ = updateLive(t, m, LiveUpdateMsg{Snapshot: live.Snapshot{State: live.StateIdle, Segments: segs}})
	bottom := m.transcriptScroll
	if bottom != 20-m.transcriptVisibleLines() {
		t.Fatalf("scroll = %d, want %d", bottom, 20-m.transcriptVisibleLines())
	}

	m, _ = updateLive(t, m, key("up"))
	if m.transcriptLive {
		t.Error("up should leave live mode")
	}
	if m.transcriptScroll != bottom-1 {
		t.Errorf("scroll = %d, want %d", m.transcriptScroll, bottom-1)
	}

	m, _ = updateLive(t, m, key("down"))
	if !m.transcriptLive {
		t.Error("down to the bottom should resume live mode")
	}
}
