package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// formatTime renders a relative timestamp for list displays.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// formatChatTime formats a message timestamp as a short wall-clock time (H:MM).
// For messages older than today it shows "Nd ago" to save column space.
func formatChatTime(t time.Time) string {
	now := time.Now()
	y1, mo1, d1 := t.Date()
	y2, mo2, d2 := now.Date()
	if y1 == y2 && mo1 == mo2 && d1 == d2 {
		return fmt.Sprintf("%d:%02d", t.Hour(), t.Minute())
	}
	days := int(now.Sub(t).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return fmt.Sprintf("%dd ago", days)
}

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// oneLine collapses newlines and runs of whitespace.
func oneLine(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

func padLines(n int, b *strings.Builder) {
	for i := 0; i < n; i++ {
		b.WriteByte('\n')
	}
}

// separator renders a horizontal rule for a body of the given width.
func separator(width int) string {
	return " " + metaStyle.Render(strings.Repeat("─", max(width-2, 4)))
}

// filterLabel renders a status filter value, "" meaning all.
func filterLabel(v string) string {
	if v == "" {
		return "all"
	}
	return v
}

// nextFilter returns the value after current in the cycle.
func nextFilter(cycle []string, current string) string {
	for i, v := range cycle {
		if v == current {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return cycle[0]
}

// moveCursor clamps cursor+delta into [0, n).
func moveCursor(cursor, delta, n int) int {
	cursor += delta
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}
