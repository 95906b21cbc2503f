package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BgStyle paints every cell of a line with one background. Lipgloss resets
// after each styled segment, so unstyled gaps would show the terminal
// background through the feed box and header.
type BgStyle struct {
	bg    lipgloss.Color
	fill  lipgloss.Style
	space string
}

// NewBgStyle returns a BgStyle for the given hex color.
func NewBgStyle(bgColor string) BgStyle {
	bg := lipgloss.Color(bgColor)
	fill := lipgloss.NewStyle().Background(bg)
	return BgStyle{bg: bg, fill: fill, space: fill.Render(" ")}
}

// Render styles text on the background. Runs of spaces inside text are
// painted too.
func (b BgStyle) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}
	style = style.Background(b.bg)
	if !strings.Contains(text, " ") {
		return style.Render(text)
	}

	var out strings.Builder
	for i, word := range strings.Split(text, " ") {
		if i > 0 {
			out.WriteString(b.space)
		}
		if word != "" {
			out.WriteString(style.Render(word))
		}
	}
	return out.String()
}

// Space returns one painted space.
func (b BgStyle) Space() string {
	return b.space
}

// Spaces returns n painted spaces.
func (b BgStyle) Spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return b.fill.Render(strings.Repeat(" ", n))
}

// Sep paints a literal separator.
func (b BgStyle) Sep(sep string) string {
	return b.fill.Render(sep)
}

// Join joins rendered parts with a painted separator.
func (b BgStyle) Join(parts []string, sep string) string {
	return strings.Join(parts, b.Sep(sep))
}

// FillLine pads rendered content to width.
func (b BgStyle) FillLine(content string, width int) string {
	return b.fill.Width(width).Render(content)
}
