package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/meetsync/internal/capture"
	"github.com/jwulff/meetsync/internal/errs"
)

type fakeRecorder struct {
	state    capture.State
	startErr error
	closed   int
	events   chan capture.Event
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{events: make(chan capture.Event, 4)}
}

func (f *fakeRecorder) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.state = capture.StateRecording
	return nil
}

func (f *fakeRecorder) Pause() error {
	if f.state != capture.StateRecording {
		return errs.InvalidTransition("pause", f.state.String())
	}
	f.state = capture.StatePaused
	return nil
}

func (f *fakeRecorder) Resume() error {
	if f.state != capture.StatePaused {
		return errs.InvalidTransition("resume", f.state.String())
	}
	f.state = capture.StateRecording
	return nil
}

func (f *fakeRecorder) Stop() (*capture.Recording, error) {
	f.state = capture.StateStopped
	return &capture.Recording{Data: []byte("aabb"), Chunks: 2, Elapsed: 2}, nil
}

func (f *fakeRecorder) Snapshot() capture.Snapshot { return capture.Snapshot{State: f.state} }
func (f *fakeRecorder) Close()                     { f.closed++ }
func (f *fakeRecorder) Events() <-chan capture.Event { return f.events }

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "shift+left":
		return tea.KeyMsg{Type: tea.KeyShiftLeft}
	case "shift+right":
		return tea.KeyMsg{Type: tea.KeyShiftRight}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func updateRecord(t *testing.T, m RecordModel, msg tea.Msg) (RecordModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(RecordModel), cmd
}

func TestRecordLifecycle(t *testing.T) {
	rec := newFakeRecorder()
	m := NewRecord(rec, "Standup")
	m, _ = updateRecord(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m, _ = updateRecord(t, m, startCaptureCmd(rec)())
	if m.snap.State != capture.StateRecording {
		t.Fatalf("state = %v, want recording", m.snap.State)
	}
	if !strings.Contains(m.View(), "REC") {
		t.Errorf("view should show REC:\n%s", m.View())
	}

	// Space pauses, then resumes.
	m, cmd := updateRecord(t, m, key(" "))
	if cmd == nil {
		t.Fatal("space should pause")
	}
	m, _ = updateRecord(t, m, cmd())
	if m.snap.State != capture.StatePaused {
		t.Fatalf("state = %v, want paused", m.snap.State)
	}
	m, cmd = updateRecord(t, m, key(" "))
	m, _ = updateRecord(t, m, cmd())
	if m.snap.State != capture.StateRecording {
		t.Fatalf("state = %v, want recording", m.snap.State)
	}

	// s stops and hands over the recording.
	m, cmd = updateRecord(t, m, key("s"))
	if cmd == nil {
		t.Fatal("s should stop")
	}
	m, cmd = updateRecord(t, m, cmd())
	if cmd == nil {
		t.Error("stop should quit")
	}
	if m.Recording() == nil || m.Recording().Chunks != 2 {
		t.Errorf("recording = %+v", m.Recording())
	}
}

func TestRecordDeviceUnavailable(t *testing.T) {
	rec := newFakeRecorder()
	rec.startErr = errs.DeviceUnavailable(errors.New("no microphone"))
	m := NewRecord(rec, "")
	m, _ = updateRecord(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m, cmd := updateRecord(t, m, startCaptureCmd(rec)())
	if cmd != nil {
		t.Error("device failure should not schedule a clear")
	}
	if m.errorMessage == "" || m.errorTransient {
		t.Errorf("error = %q transient=%v", m.errorMessage, m.errorTransient)
	}
	if !strings.Contains(m.View(), "no microphone") {
		t.Errorf("view should show the error:\n%s", m.View())
	}

	// Space retries.
	rec.startErr = nil
	m, cmd = updateRecord(t, m, key(" "))
	if cmd == nil {
		t.Fatal("space should retry start")
	}
	m, _ = updateRecord(t, m, cmd())
	if m.snap.State != capture.StateRecording {
		t.Errorf("state = %v, want recording", m.snap.State)
	}
	if m.errorMessage != "" {
		t.Errorf("error should clear on success, got %q", m.errorMessage)
	}
}

func TestRecordDoubleSpaceWhilePausing(t *testing.T) {
	rec := newFakeRecorder()
	m := NewRecord(rec, "")
	m, _ = updateRecord(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = updateRecord(t, m, startCaptureCmd(rec)())

	m, pause := updateRecord(t, m, key(" "))
	if pause == nil {
		t.Fatal("space should pause")
	}
	// A second press before the pause lands is ignored.
	m, again := updateRecord(t, m, key(" "))
	if again != nil {
		t.Fatal("second space while pausing should be ignored")
	}
	m, _ = updateRecord(t, m, pause())
	if m.snap.State != capture.StatePaused || m.errorMessage != "" {
		t.Fatalf("state = %v error = %q, want paused without error", m.snap.State, m.errorMessage)
	}

	m, resume := updateRecord(t, m, key(" "))
	m, again = updateRecord(t, m, key(" "))
	if again != nil {
		t.Fatal("second space while resuming should be ignored")
	}
	m, _ = updateRecord(t, m, resume())
	if m.snap.State != capture.StateRecording || m.errorMessage != "" {
		t.Errorf("state = %v error = %q, want recording without error", m.snap.State, m.errorMessage)
	}
}

func TestRecordStopIgnoredWhenIdle(t *testing.T) {
	rec := newFakeRecorder()
	m := NewRecord(rec, "")
	m.busy = false

	_, cmd := updateRecord(t, m, key("s"))
	if cmd != nil {
		t.Error("s while idle should do nothing")
	}
}

func TestRecordQuitCloses(t *testing.T) {
	rec := newFakeRecorder()
	m := NewRecord(rec, "")

	m, cmd := updateRecord(t, m, key("q"))
	if cmd == nil {
		t.Error("q should quit")
	}
	if rec.closed != 1 {
		t.Errorf("closed = %d, want 1", rec.closed)
	}
	if m.Recording() != nil {
		t.Error("quit should not produce a recording")
	}
}

func TestRecordEvents(t *testing.T) {
	rec := newFakeRecorder()
	m := NewRecord(rec, "")

	rec.events <- capture.Event{Kind: capture.EventTick, Snapshot: capture.Snapshot{State: capture.StateRecording, Elapsed: 65, Chunks: 3}}
	m, cmd := updateRecord(t, m, waitCaptureEventCmd(rec)())
	if cmd == nil {
		t.Error("event should re-arm the listener")
	}
	if m.snap.Elapsed != 65 || m.snap.Chunks != 3 {
		t.Errorf("snap = %+v", m.snap)
	}

	m.width = 80
	if !strings.Contains(m.View(), "1:05") {
		t.Errorf("view should show elapsed 1:05:\n%s", m.View())
	}

	close(rec.events)
	m, _ = updateRecord(t, m, waitCaptureEventCmd(rec)())
	if m.snap.State != capture.StateStopped {
		t.Errorf("state = %v, want stopped", m.snap.State)
	}
}
