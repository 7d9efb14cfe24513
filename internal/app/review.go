package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/meetsync/internal/playback"
	"github.com/jwulff/meetsync/internal/transcript"
	"github.com/jwulff/meetsync/internal/ui"
)

// ReviewModel plays a recording back against its transcript, highlighting
// the active segment and word and keeping the active segment on screen.
type ReviewModel struct {
	title    string
	coord    *playback.Coordinator
	segs     []transcript.Segment
	interval time.Duration
	step     float64

	position float64
	active   transcript.Position
	playing  bool
	selected int
	follow   bool // auto-scroll to the active segment

	// Layout, rebuilt on resize.
	lines []reviewLine
	spans []playback.Span
	top   int

	width  int
	height int

	errorMessage   string
	errorTransient bool
}

// reviewLine is one rendered row: a segment and the word indexes it holds.
type reviewLine struct {
	seg   int
	first bool
	words []int
	text  string // used when the segment has no words
}

// NewReview returns a review screen. tr is read once; interval is the
// highlight refresh rate and step the seek distance of the arrow keys.
func NewReview(title string, coord *playback.Coordinator, tr *transcript.Transcript, interval, step time.Duration) ReviewModel {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if step <= 0 {
		step = 5 * time.Second
	}
	return ReviewModel{
		title:    title,
		coord:    coord,
		segs:     tr.Segments(),
		interval: interval,
		step:     step.Seconds(),
		active:   transcript.None,
		follow:   true,
	}
}

// Init starts the highlight ticker.
func (m ReviewModel) Init() tea.Cmd {
	return playbackTickCmd(m.interval)
}

func playbackTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return PlaybackTickMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		if m.active.Active() && m.active.Segment < len(m.spans) {
			m.top = playback.CenterOn(m.spans[m.active.Segment], m.visibleLines(), len(m.lines))
		}
		return m, nil

	case PlaybackTickMsg:
		m.apply(m.coord.Tick())
		m.playing = m.coord.Playing()
		return m, playbackTickCmd(m.interval)

	case PlaybackUpdateMsg:
		m.apply(msg.Update)
		if msg.Err != nil {
			m.errorMessage = msg.Err.Error()
			m.errorTransient = true
			return m, clearTransientErrorCmd()
		}
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

// apply records a resolution and scrolls when the active segment changed
// and left the viewport.
func (m *ReviewModel) apply(u playback.Update) {
	m.position = u.Position
	m.active = u.Active
	if !u.SegmentChanged || !u.Active.Active() {
		return
	}
	m.selected = u.Active.Segment
	if !m.follow || u.Active.Segment >= len(m.spans) {
		return
	}
	if top, moved := playback.Follow(m.spans[u.Active.Segment], m.view(), len(m.lines)); moved {
		m.top = top
	}
}

// seek moves playback to t. The coordinator is only touched from Update,
// which keeps it single-writer.
func (m ReviewModel) seek(t float64) (ReviewModel, tea.Cmd) {
	u, err := m.coord.SeekTo(t)
	m.follow = true
	return m, func() tea.Msg { return PlaybackUpdateMsg{Update: u, Err: err} }
}

// stepWord seeks to the start of the word dir places away from the one at
// the playhead, within the active segment or else the selected one.
func (m ReviewModel) stepWord(dir int) (ReviewModel, tea.Cmd) {
	si := m.selected
	if m.active.Active() {
		si = m.active.Segment
	}
	if si < 0 || si >= len(m.segs) {
		return m, nil
	}
	words := m.segs[si].Words
	pos := m.coord.Position()
	cur := sort.Search(len(words), func(i int) bool { return words[i].Start > pos }) - 1
	next := cur + dir
	if next < 0 || next >= len(words) {
		return m, nil
	}
	return m.seek(words[next].Start)
}

// handleKey processes key presses.
func (m ReviewModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		if m.coord.Playing() {
			m.coord.Toggle()
		}
		return m, tea.Quit

	case KeySpace:
		if err := m.coord.Toggle(); err != nil {
			m.errorMessage = err.Error()
			m.errorTransient = true
			return m, clearTransientErrorCmd()
		}
		m.playing = m.coord.Playing()
		m.follow = true
		return m, nil

	case KeyLeft:
		return m.seek(m.coord.Position() - m.step)

	case KeyRight:
		return m.seek(m.coord.Position() + m.step)

	case KeyWordPrev:
		return m.stepWord(-1)

	case KeyWordNext:
		return m.stepWord(1)

	case KeyHome:
		return m.seek(0)

	case KeyEnd:
		return m.seek(m.coord.Duration())

	case KeyEnter:
		if m.selected < len(m.segs) {
			return m.seek(m.segs[m.selected].StartTime)
		}
		return m, nil

	case KeyUp, KeyK:
		if m.selected > 0 {
			m.selected--
		}
		m.revealSelected()
		return m, nil

	case KeyDown, KeyJ:
		if m.selected < len(m.segs)-1 {
			m.selected++
		}
		m.revealSelected()
		return m, nil
	}

	return m, nil
}

// revealSelected stops auto-follow and scrolls the selection into view.
func (m *ReviewModel) revealSelected() {
	m.follow = false
	if m.selected >= len(m.spans) {
		return
	}
	if top, moved := playback.Follow(m.spans[m.selected], m.view(), len(m.lines)); moved {
		m.top = top
	}
}

func (m ReviewModel) visibleLines() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + status(1) + dividers(2) + progress(1) + error(1) + footer(1) + padding
	reserved := 8
	return max(5, m.height-reserved)
}

func (m ReviewModel) view() playback.Span {
	return playback.Span{Top: m.top, Bottom: m.top + m.visibleLines()}
}

const reviewPrefixWidth = 10 // "> [mm:ss] "

// layout wraps every segment to the current width and records the rows
// each one occupies.
func (m *ReviewModel) layout() {
	width := m.width
	if width == 0 {
		width = 80
	}
	textWidth := max(10, width-reviewPrefixWidth-2)

	m.lines = nil
	m.spans = make([]playback.Span, len(m.segs))
	for i, seg := range m.segs {
		top := len(m.lines)
		head := ""
		if seg.Speaker != "" {
			head = seg.Speaker + ": "
		}
		if len(seg.Words) == 0 {
			for j, wl := range wrapText(head+seg.DisplayText(), textWidth) {
				m.lines = append(m.lines, reviewLine{seg: i, first: j == 0, text: wl})
			}
		} else {
			tokens := make([]string, len(seg.Words))
			for j, w := range seg.Words {
				tokens[j] = w.Text
			}
			if head != "" {
				tokens[0] = head + tokens[0]
			}
			for j, idx := range wrapTokens(tokens, textWidth) {
				m.lines = append(m.lines, reviewLine{seg: i, first: j == 0, words: idx})
			}
		}
		m.spans[i] = playback.Span{Top: top, Bottom: len(m.lines)}
	}
}

func (m ReviewModel) renderLine(l reviewLine) string {
	seg := m.segs[l.seg]
	isActive := m.active.Segment == l.seg

	prefix := strings.Repeat(" ", reviewPrefixWidth)
	if l.first {
		marker := "  "
		if l.seg == m.selected {
			marker = ui.SelectedStyle.Render("> ")
		}
		prefix = marker + ui.TimestampStyle.Render(fmt.Sprintf("[%s]", transcript.FormatTime(seg.StartTime)))
		prefix = padRight(prefix, reviewPrefixWidth)
	}

	if l.words == nil {
		switch {
		case isActive:
			return prefix + ui.ActiveSegmentStyle.Render(l.text)
		case !seg.Timed():
			return prefix + ui.DimStyle.Render(l.text)
		}
		return prefix + l.text
	}

	parts := make([]string, len(l.words))
	for i, w := range l.words {
		text := seg.Words[w].Text
		switch {
		case isActive && m.active.Word == w:
			text = ui.ActiveWordStyle.Render(text)
		case isActive:
			text = ui.ActiveSegmentStyle.Render(text)
		}
		if w == 0 && seg.Speaker != "" {
			text = ui.SpeakerStyle.Render(seg.Speaker+":") + " " + text
		}
		parts[i] = text
	}
	return prefix + strings.Join(parts, " ")
}

// View renders the review screen.
func (m ReviewModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	title := ui.TitleStyle.Render("MEETSYNC")
	if m.title != "" {
		title += ui.DimStyle.Render(" — " + m.title)
	}
	sections = append(sections, title)
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, divider(m.width))

	var rows []string
	if len(m.segs) == 0 {
		rows = append(rows, "", ui.DimStyle.Render("  No transcript for this meeting."))
	} else {
		end := min(m.top+m.visibleLines(), len(m.lines))
		for i := max(0, m.top); i < end; i++ {
			rows = append(rows, m.renderLine(m.lines[i]))
		}
	}
	sections = append(sections, strings.Join(fitHeight(rows, m.visibleLines()), "\n"))
	sections = append(sections, divider(m.width))

	if m.errorMessage != "" {
		sections = append(sections, renderErrorBar(m.errorMessage, m.width))
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m ReviewModel) renderStatusBar() string {
	var state string
	if m.playing {
		state = ui.LiveBadgeStyle.Render("▶ PLAYING")
	} else {
		state = ui.IdleDotStyle.Render("‖ PAUSED")
	}

	clock := ui.TitleStyle.Render(transcript.FormatTime(m.position)) +
		ui.StatusStyle.Render(" / "+transcript.FormatTime(m.coord.Duration()))

	var where string
	if m.active.Active() {
		where = ui.StatusStyle.Render(fmt.Sprintf("segment %d/%d", m.active.Segment+1, len(m.segs)))
	} else {
		where = ui.DimStyle.Render(fmt.Sprintf("%d segments", len(m.segs)))
	}

	return "  " + state + "  " + clock + "  " + where + "  " + m.renderProgress(20)
}

func (m ReviewModel) renderProgress(barLen int) string {
	d := m.coord.Duration()
	filled := 0
	if d > 0 {
		filled = min(barLen, int(m.position/d*float64(barLen)))
	}
	return ui.LevelGreenStyle.Render(strings.Repeat("█", filled)) +
		ui.LevelGrayStyle.Render(strings.Repeat("░", barLen-filled))
}

func (m ReviewModel) renderFooter() string {
	playLabel := "Play"
	if m.playing {
		playLabel = "Pause"
	}
	parts := []string{
		ui.FooterItem("Space", playLabel),
		ui.FooterItem("←→", fmt.Sprintf("±%gs", m.step)),
		ui.FooterItem("⇧←→", "Word"),
		ui.FooterItem("j/k", "Select"),
		ui.FooterItem("Enter", "Jump"),
		ui.FooterItem("q", "Quit"),
	}
	return strings.Join(parts, "  ")
}
