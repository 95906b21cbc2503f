package ui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "..."

// truncate shortens value to limit terminal cells, ending with an ellipsis
// when something was cut. Wide runes count as two cells.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || ansi.StringWidth(value) <= limit {
		return value
	}
	if limit <= len(ellipsis) {
		return ansi.Truncate(value, limit, "")
	}
	return ansi.Truncate(value, limit, ellipsis)
}

// truncateMiddle cuts from the middle, keeping about two thirds of the
// budget for the end (file name or port).
func truncateMiddle(value string, limit int) string {
	value = strings.TrimSpace(value)
	width := ansi.StringWidth(value)
	if limit <= 0 || width <= limit {
		return value
	}
	if limit <= 5 {
		return ansi.Truncate(value, limit, "")
	}
	keep := limit - 1
	suffix := keep * 2 / 3
	prefix := keep - suffix
	return ansi.Truncate(value, prefix, "") + "…" + ansi.TruncateLeft(value, width-suffix, "")
}

// revealRunes returns the first n runes of s.
func revealRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if n >= len(runes) {
		return s
	}
	return string(runes[:n])
}
