package app

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/meetsync/internal/capture"
	"github.com/jwulff/meetsync/internal/transcript"
	"github.com/jwulff/meetsync/internal/ui"
)

// Recorder is the capture session a RecordModel drives.
type Recorder interface {
	Start(ctx context.Context) error
	Pause() error
	Resume() error
	Stop() (*capture.Recording, error)
	Snapshot() capture.Snapshot
	Close()
	Events() <-chan capture.Event
}

// RecordModel is the recording screen.
type RecordModel struct {
	session Recorder
	title   string

	snap      capture.Snapshot
	recording *capture.Recording
	busy      bool // a command is in flight

	width  int
	height int

	errorMessage   string
	errorTransient bool
}

// NewRecord returns a recording screen for session. The device is acquired
// when the program starts.
func NewRecord(session Recorder, title string) RecordModel {
	return RecordModel{session: session, title: title, busy: true}
}

// Recording returns the assembled recording once stopped, or nil when the
// user quit without stopping.
func (m RecordModel) Recording() *capture.Recording { return m.recording }

// Init acquires the device and starts listening for session events.
func (m RecordModel) Init() tea.Cmd {
	return tea.Batch(startCaptureCmd(m.session), waitCaptureEventCmd(m.session))
}

func startCaptureCmd(s Recorder) tea.Cmd {
	return func() tea.Msg {
		if err := s.Start(context.Background()); err != nil {
			return CaptureErrorMsg{Err: err}
		}
		return CaptureStateMsg{Snapshot: s.Snapshot()}
	}
}

func waitCaptureEventCmd(s Recorder) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-s.Events()
		if !ok {
			return CaptureClosedMsg{}
		}
		return CaptureEventMsg{Event: ev}
	}
}

func pauseCaptureCmd(s Recorder) tea.Cmd {
	return func() tea.Msg {
		if err := s.Pause(); err != nil {
			return CaptureErrorMsg{Err: err}
		}
		return CaptureStateMsg{Snapshot: s.Snapshot()}
	}
}

func resumeCaptureCmd(s Recorder) tea.Cmd {
	return func() tea.Msg {
		if err := s.Resume(); err != nil {
			return CaptureErrorMsg{Err: err}
		}
		return CaptureStateMsg{Snapshot: s.Snapshot()}
	}
}

func stopCaptureCmd(s Recorder) tea.Cmd {
	return func() tea.Msg {
		rec, err := s.Stop()
		if err != nil {
			return CaptureErrorMsg{Err: err}
		}
		return CaptureStoppedMsg{Recording: rec}
	}
}

// Update processes messages and returns the updated model and any commands.
func (m RecordModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case CaptureStateMsg:
		m.busy = false
		if !m.errorTransient {
			m.errorMessage = ""
		}
		m.snap = msg.Snapshot
		return m, nil

	case CaptureEventMsg:
		m.snap = msg.Event.Snapshot
		return m, waitCaptureEventCmd(m.session)

	case CaptureClosedMsg:
		m.snap.State = capture.StateStopped
		return m, nil

	case CaptureStoppedMsg:
		m.recording = msg.Recording
		return m, tea.Quit

	case CaptureErrorMsg:
		m.busy = false
		m.errorMessage = msg.Err.Error()
		if m.snap.State == capture.StateIdle {
			// Device acquisition failed; Space retries.
			m.errorTransient = false
			return m, nil
		}
		m.errorTransient = true
		return m, clearTransientErrorCmd()

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

// handleKey processes key presses.
func (m RecordModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		m.session.Close()
		return m, tea.Quit

	case KeySpace:
		if m.busy {
			return m, nil
		}
		switch m.snap.State {
		case capture.StateIdle:
			m.busy = true
			return m, startCaptureCmd(m.session)
		case capture.StateRecording:
			m.busy = true
			return m, pauseCaptureCmd(m.session)
		case capture.StatePaused:
			m.busy = true
			return m, resumeCaptureCmd(m.session)
		}
		return m, nil

	case KeyStop:
		switch m.snap.State {
		case capture.StateRecording, capture.StatePaused:
			m.busy = true
			return m, stopCaptureCmd(m.session)
		}
		return m, nil
	}

	return m, nil
}

// View renders the recording screen.
func (m RecordModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	title := ui.TitleStyle.Render("MEETSYNC")
	if m.title != "" {
		title += ui.DimStyle.Render(" — " + m.title)
	}
	sections = append(sections, title)
	sections = append(sections, divider(m.width))
	sections = append(sections, m.renderStatus())
	sections = append(sections, divider(m.width))

	if m.errorMessage != "" {
		sections = append(sections, renderErrorBar(m.errorMessage, m.width))
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m RecordModel) renderStatus() string {
	var dot string
	switch m.snap.State {
	case capture.StateRecording:
		dot = ui.RecordingDotStyle.Render("● REC")
	case capture.StatePaused:
		dot = ui.PausedDotStyle.Render("‖ PAUSED")
	case capture.StateStopping, capture.StateStopped:
		dot = ui.IdleDotStyle.Render("■ STOPPED")
	default:
		if m.busy {
			dot = ui.SpinnerStyle.Render("⟳ Opening microphone...")
		} else {
			dot = ui.IdleDotStyle.Render("○ IDLE")
		}
	}

	elapsed := ui.TitleStyle.Render(transcript.FormatTime(float64(m.snap.Elapsed)))
	stats := ui.StatusStyle.Render(fmt.Sprintf("%d chunks  %.1f KB", m.snap.Chunks, float64(m.snap.Bytes)/1024))
	return "  " + dot + "  " + elapsed + "  " + stats
}

func (m RecordModel) renderFooter() string {
	var parts []string
	switch m.snap.State {
	case capture.StateIdle:
		parts = append(parts, ui.FooterItem("Space", "Start"))
	case capture.StateRecording:
		parts = append(parts, ui.FooterItem("Space", "Pause"), ui.FooterItem("s", "Stop"))
	case capture.StatePaused:
		parts = append(parts, ui.FooterItem("Space", "Resume"), ui.FooterItem("s", "Stop"))
	}
	parts = append(parts, ui.FooterItem("q", "Discard"))
	return strings.Join(parts, "  ")
}
