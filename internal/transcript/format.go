package transcript

import (
	"fmt"
	"math"
)

// FormatTime renders seconds as m:ss.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	s := int(seconds)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// FormatDuration renders seconds as "1h 5m", "3m 20s" or "42s".
func FormatDuration(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	s := int(seconds)
	h, m := s/3600, (s%3600)/60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s%60)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
