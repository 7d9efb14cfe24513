// Package app holds the bubbletea views: recording, following a live
// meeting and reviewing a transcript against its audio.
package app

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/meetsync/internal/ui"
)

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

func divider(width int) string {
	return ui.DividerStyle.Render(strings.Repeat("─", max(1, width)))
}

// renderErrorBar keeps the error on one row so the layout math holds.
func renderErrorBar(msg string, width int) string {
	const label = "Error: "
	if width > len(label)+1 {
		msg = truncateToWidth(msg, width-len(label))
	}
	return ui.ErrorStyle.Render(label) + ui.ErrorTextStyle.Render(msg)
}

// fitHeight pads or cuts lines to exactly height rows.
func fitHeight(lines []string, height int) []string {
	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return lines
}

// Helpers

func padRight(s string, width int) string {
	// Get visible length (ignoring ANSI codes)
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible <= width {
		return s
	}
	// Simple truncation for non-styled strings
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		} else {
			lines = append(lines, "")
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

// wrapTokens groups token indexes into lines of at most width columns, using
// the same rule as wrapText.
func wrapTokens(tokens []string, width int) [][]int {
	var lines [][]int
	var current []int
	n := 0
	for i, tok := range tokens {
		switch {
		case len(current) == 0:
			current, n = []int{i}, len(tok)
		case width <= 0 || n+1+len(tok) <= width:
			current = append(current, i)
			n += 1 + len(tok)
		default:
			lines = append(lines, current)
			current, n = []int{i}, len(tok)
		}
	}
	if len(current) > 0 {
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return [][]int{nil}
	}
	return lines
}
