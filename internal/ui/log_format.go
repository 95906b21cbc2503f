package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/five82/agentlog/internal/logfeed"
)

// clockLayout is the per-line timestamp format of the feed.
const clockLayout = "15:04:05"

// formatClock renders the bracketed local time prefix of a feed line.
func formatClock(ts time.Time) string {
	if ts.IsZero() {
		return "[--:--:--]"
	}
	return "[" + ts.In(time.Local).Format(clockLayout) + "]"
}

// FormatEntry renders an entry as a single plain text line, the way
// agentlog tail prints it.
func FormatEntry(e logfeed.Entry) string {
	level := strings.ToUpper(string(e.Level))
	if level == "" {
		level = "INFO"
	}
	message := strings.Join(strings.Fields(e.Message), " ")
	return fmt.Sprintf("%s %-7s %s", formatClock(e.Timestamp), level, message)
}
