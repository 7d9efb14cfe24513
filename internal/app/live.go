package app

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/meetsync/internal/backend"
	"github.com/jwulff/meetsync/internal/live"
	"github.com/jwulff/meetsync/internal/transcript"
	"github.com/jwulff/meetsync/internal/ui"
)

// BotStopper asks the backend to pull a meeting bot out.
type BotStopper interface {
	StopBot(ctx context.Context, meetingID string) (backend.StopResult, error)
}

// LiveModel follows a meeting's live transcript.
type LiveModel struct {
	meetingID string
	updates   <-chan live.Snapshot
	bot       BotStopper
	cancel    context.CancelFunc

	snap     live.Snapshot
	closed   bool
	stopping bool

	width            int
	height           int
	transcriptScroll int
	transcriptLive   bool

	errorMessage   string
	errorTransient bool
}

// NewLive returns a live view over a running session's updates. cancel
// stops the session when the user quits.
func NewLive(meetingID string, updates <-chan live.Snapshot, bot BotStopper, cancel context.CancelFunc) LiveModel {
	return LiveModel{
		meetingID:      meetingID,
		updates:        updates,
		bot:            bot,
		cancel:         cancel,
		snap:           live.Snapshot{MeetingID: meetingID},
		transcriptLive: true,
	}
}

// Init starts reading session updates.
func (m LiveModel) Init() tea.Cmd {
	return waitLiveUpdateCmd(m.updates)
}

func waitLiveUpdateCmd(updates <-chan live.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return LiveClosedMsg{}
		}
		return LiveUpdateMsg{Snapshot: snap}
	}
}

func stopBotCmd(bot BotStopper, meetingID string) tea.Cmd {
	return func() tea.Msg {
		res, err := bot.StopBot(context.Background(), meetingID)
		return BotStoppedMsg{Result: res, Err: err}
	}
}

// Update processes messages and returns the updated model and any commands.
func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.transcriptLive {
			m.scrollToBottom()
		}
		return m, nil

	case LiveUpdateMsg:
		m.snap = msg.Snapshot
		if m.transcriptLive {
			m.scrollToBottom()
		}
		return m, waitLiveUpdateCmd(m.updates)

	case LiveClosedMsg:
		m.closed = true
		return m, nil

	case BotStoppedMsg:
		m.stopping = false
		if msg.Err != nil {
			m.errorMessage = msg.Err.Error()
			m.errorTransient = true
			return m, clearTransientErrorCmd()
		}
		// The status poll observes the bot leaving and ends the session.
		return m, nil

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
func (m LiveModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case KeyStop:
		if m.closed || m.stopping || m.bot == nil {
			return m, nil
		}
		m.stopping = true
		return m, stopBotCmd(m.bot, m.meetingID)

	case KeyUp, KeyK:
		m.transcriptLive = false
		if m.transcriptScroll > 0 {
			m.transcriptScroll--
		}
		return m, nil

	case KeyDown, KeyJ:
		maxScroll := m.maxTranscriptScroll()
		m.transcriptScroll++
		if m.transcriptScroll >= maxScroll {
			m.transcriptScroll = maxScroll
			m.transcriptLive = true
		}
		return m, nil
	}

	return m, nil
}

func (m *LiveModel) scrollToBottom() {
	m.transcriptScroll = m.maxTranscriptScroll()
}

func (m LiveModel) maxTranscriptScroll() int {
	total := len(m.displayLines())
	visible := m.transcriptVisibleLines()
	if total <= visible {
		return 0
	}
	return total - visible
}

func (m LiveModel) transcriptVisibleLines() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + status(1) + dividers(2) + panel title(1) + error(1) + footer(1) + padding
	reserved := 8
	return max(5, m.height-reserved)
}

// View renders the live screen.
func (m LiveModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, ui.TitleStyle.Render("MEETSYNC")+ui.DimStyle.Render(" — live "+m.meetingID))
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, divider(m.width))
	sections = append(sections, m.renderTranscriptPanel(m.transcriptVisibleLines()+1))
	sections = append(sections, divider(m.width))

	if m.errorMessage != "" {
		sections = append(sections, renderErrorBar(m.errorMessage, m.width))
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m LiveModel) renderStatusBar() string {
	var parts []string

	switch {
	case m.snap.State == live.StateEnded || m.closed:
		parts = append(parts, ui.IdleDotStyle.Render("■ ENDED"))
	case m.snap.Reconnecting:
		parts = append(parts, ui.ErrorTextStyle.Render(fmt.Sprintf("⟳ Reconnecting (attempt %d)", m.snap.Attempt)))
	case m.snap.State == live.StateConnecting:
		parts = append(parts, ui.SpinnerStyle.Render("⟳ Connecting"))
	default:
		parts = append(parts, ui.LiveBadgeStyle.Render("● "+strings.ToUpper(m.snap.State.String())))
	}

	if m.snap.Status.IsRecording {
		parts = append(parts, ui.RecordingDotStyle.Render("● REC"))
	}
	if m.snap.Status.Duration > 0 {
		parts = append(parts, ui.StatusStyle.Render(transcript.FormatDuration(m.snap.Status.Duration)))
	}
	parts = append(parts, ui.StatusStyle.Render(fmt.Sprintf("%d segments", len(m.snap.Segments))))
	if m.snap.Gaps > 0 {
		parts = append(parts, ui.ScrollBadgeStyle.Render(fmt.Sprintf("%d gaps", m.snap.Gaps)))
	}
	if m.stopping {
		parts = append(parts, ui.SpinnerStyle.Render("stopping bot..."))
	}

	return "  " + strings.Join(parts, "  ")
}

// displayLines renders every segment and the provisional line, wrapped to
// the panel width.
func (m LiveModel) displayLines() []string {
	width := m.width
	if width == 0 {
		width = 80
	}
	// Prefix: "  [mm:ss] " plus the speaker label.
	const prefixWidth = 10
	textWidth := max(10, width-prefixWidth-2)
	indent := strings.Repeat(" ", prefixWidth)

	var lines []string
	for _, seg := range m.snap.Segments {
		ts := ui.TimestampStyle.Render(fmt.Sprintf("[%5s]", transcript.FormatTime(seg.StartTime)))
		text := seg.DisplayText()
		if seg.Speaker != "" {
			text = seg.Speaker + ": " + text
		}
		wrapped := wrapText(text, textWidth)
		lines = append(lines, ts+" "+wrapped[0])
		for _, wl := range wrapped[1:] {
			lines = append(lines, indent+wl)
		}
	}

	if m.snap.Provisional != "" {
		ts := ui.TimestampStyle.Render("[ ... ]")
		wrapped := wrapText(m.snap.Provisional+"▌", textWidth)
		lines = append(lines, ts+" "+ui.PartialTextStyle.Render(wrapped[0]))
		for _, wl := range wrapped[1:] {
			lines = append(lines, indent+ui.PartialTextStyle.Render(wl))
		}
	}
	return lines
}

func (m LiveModel) renderTranscriptPanel(height int) string {
	var badge string
	if m.transcriptLive {
		badge = ui.LiveBadgeStyle.Render(" LIVE")
	} else {
		badge = ui.ScrollBadgeStyle.Render(" SCROLL")
	}

	lines := []string{ui.PanelTitleStyle.Render("TRANSCRIPT") + badge}
	contentHeight := height - 1

	display := m.displayLines()
	if len(display) == 0 {
		lines = append(lines, "")
		if m.snap.State == live.StateConnecting {
			lines = append(lines, ui.DimStyle.Render("  Connecting to the live channel..."))
		} else {
			lines = append(lines, ui.DimStyle.Render("  Waiting for speech..."))
		}
		return strings.Join(fitHeight(lines, height), "\n")
	}

	start := 0
	if m.transcriptLive {
		if len(display) > contentHeight {
			start = len(display) - contentHeight
		}
	} else {
		start = m.transcriptScroll
	}
	start = max(0, start)
	end := min(start+contentHeight, len(display))

	for i := start; i < end; i++ {
		lines = append(lines, "  "+display[i])
	}
	return strings.Join(fitHeight(lines, height), "\n")
}

func (m LiveModel) renderFooter() string {
	var parts []string
	if !m.closed && m.snap.State != live.StateEnded {
		parts = append(parts, ui.FooterItem("s", "Stop bot"))
	}
	parts = append(parts, ui.FooterItem("↑↓", "Scroll"))
	parts = append(parts, ui.FooterItem("q", "Quit"))
	return strings.Join(parts, "  ")
}
