// Package output formats command results for the terminal.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jwulff/meetsync/internal/backend"
	"github.com/jwulff/meetsync/internal/db"
	"github.com/jwulff/meetsync/internal/transcript"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) RecordingStopped(seconds float64, chunks int) {
	fmt.Fprintf(f.w, "⏹️  Recording stopped (%s, %d chunks)\n", transcript.FormatDuration(seconds), chunks)
}

func (f *Formatter) RecordingSaved(path string) {
	fmt.Fprintf(f.w, "💾 Audio saved: %s\n", path)
}

func (f *Formatter) Uploading(id string) {
	fmt.Fprintf(f.w, "⬆️  Uploading to meeting %s...\n", id)
}

func (f *Formatter) Transcribing() {
	fmt.Fprintf(f.w, "📝 Transcribing audio...\n")
}

func (f *Formatter) TranscribeDone(segments int) {
	fmt.Fprintf(f.w, "✅ Transcript ready: %d segments\n", segments)
}

func (f *Formatter) Summarizing() {
	fmt.Fprintf(f.w, "🤖 Generating summary...\n")
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

// Meeting prints one backend meeting.
func (f *Formatter) Meeting(m backend.Meeting) {
	fmt.Fprintf(f.w, "  %s  %s", m.ID, m.Title)
	var tags []string
	for _, t := range []string{m.MeetingType, m.Platform, m.Status} {
		if t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) > 0 {
		fmt.Fprintf(f.w, " [%s]", strings.Join(tags, ", "))
	}
	if m.Duration > 0 {
		fmt.Fprintf(f.w, " %s", transcript.FormatDuration(m.Duration))
	}
	fmt.Fprintln(f.w)
}

func (f *Formatter) MeetingListHeader() {
	fmt.Fprintf(f.w, "📁 Meetings:\n\n")
}

// CachedMeeting prints one meeting from the local cache.
func (f *Formatter) CachedMeeting(m db.Meeting) {
	status := ""
	if m.Status != "" {
		status = " [" + m.Status + "]"
	}
	fmt.Fprintf(f.w, "  %s  %s%s  %d segments  %s\n",
		m.ID, m.Title, status, m.Segments, m.UpdatedAt.Format("2006-01-02 15:04"))
}

// BotStatus prints a polled bot status.
func (f *Formatter) BotStatus(id string, s backend.BotStatus) {
	if s.Inactive() {
		fmt.Fprintf(f.w, "🤖 %s: inactive\n", id)
		return
	}
	rec := ""
	if s.IsRecording {
		rec = " ● recording"
	}
	fmt.Fprintf(f.w, "🤖 %s: %s%s (%s)\n", id, s.Status, rec, transcript.FormatDuration(s.Duration))
	if s.MeetingURL != "" {
		fmt.Fprintf(f.w, "   %s as %q\n", s.MeetingURL, s.BotName)
	}
}

// Transcript prints segments as timestamped lines.
func (f *Formatter) Transcript(segs []transcript.Segment) {
	for _, seg := range segs {
		speaker := ""
		if seg.Speaker != "" {
			speaker = seg.Speaker + ": "
		}
		fmt.Fprintf(f.w, "[%s] %s%s\n", transcript.FormatTime(seg.StartTime), speaker, seg.DisplayText())
	}
}

// Summary prints a structured summary.
func (f *Formatter) Summary(s backend.Summary) {
	fmt.Fprintf(f.w, "\n📋 Summary")
	if s.Sentiment != "" {
		fmt.Fprintf(f.w, " (%s)", s.Sentiment)
	}
	fmt.Fprintf(f.w, "\n\n%s\n", s.Overview.Text)

	if len(s.ActionItems) > 0 {
		fmt.Fprintf(f.w, "\nAction items:\n")
		for _, a := range s.ActionItems {
			box := "[ ]"
			if a.Completed {
				box = "[x]"
			}
			fmt.Fprintf(f.w, "  %s %s", box, a.Text)
			if a.Assignee != "" {
				fmt.Fprintf(f.w, " (@%s)", a.Assignee)
			}
			if a.Deadline != "" {
				fmt.Fprintf(f.w, " due %s", a.Deadline)
			}
			fmt.Fprintln(f.w)
		}
	}

	if len(s.Outline) > 0 {
		fmt.Fprintf(f.w, "\nOutline:\n")
		for _, t := range s.Outline {
			fmt.Fprintf(f.w, "  %s  %s\n", transcript.FormatTime(t.Timestamp), t.Topic)
			for _, sub := range t.Subtopics {
				fmt.Fprintf(f.w, "         - %s\n", sub)
			}
		}
	}

	if len(s.Keywords) > 0 {
		fmt.Fprintf(f.w, "\nKeywords: %s\n", strings.Join(s.Keywords, ", "))
	}
}
