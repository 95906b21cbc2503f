package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/agentlog/internal/logfeed"
)

// Theme is a named palette. Every field is a hex color.
type Theme struct {
	Name string

	Background  string // around the feed box
	Surface     string // header and command bar
	FocusBg     string // inside the feed box
	BorderFocus string
	MatchBg     string // active search match

	Text    string // info entries
	Muted   string
	Faint   string
	Accent  string
	System  string // system entries
	Success string
	Warning string
	Danger  string // error entries
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style

	Header lipgloss.Style
	Logo   lipgloss.Style

	levels map[logfeed.Level]lipgloss.Style
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	s := Styles{
		Text:        fg(t.Text),
		MutedText:   fg(t.Muted),
		FaintText:   fg(t.Faint),
		AccentText:  fg(t.Accent),
		SuccessText: fg(t.Success).Bold(true),
		WarningText: fg(t.Warning),
		DangerText:  fg(t.Danger).Bold(true),
		Header:      fg(t.Text).Background(lipgloss.Color(t.Surface)).Padding(0, 1),
		Logo:        fg(t.Warning).Bold(true),
	}
	s.levels = map[logfeed.Level]lipgloss.Style{
		logfeed.LevelInfo:    s.Text,
		logfeed.LevelSuccess: s.SuccessText,
		logfeed.LevelWarning: s.WarningText,
		logfeed.LevelError:   s.DangerText,
		logfeed.LevelSystem:  fg(t.System),
	}
	return s
}

// LevelStyle returns the message style for a log level. Unknown levels
// render like info.
func (s Styles) LevelStyle(lvl logfeed.Level) lipgloss.Style {
	if style, ok := s.levels[lvl]; ok {
		return style
	}
	return s.Text
}

// WithBackground returns a copy of Styles where every style paints bgColor
// instead of inheriting the terminal background.
func (s Styles) WithBackground(bgColor string) Styles {
	bg := lipgloss.Color(bgColor)
	out := Styles{
		Text:        s.Text.Background(bg),
		MutedText:   s.MutedText.Background(bg),
		FaintText:   s.FaintText.Background(bg),
		AccentText:  s.AccentText.Background(bg),
		SuccessText: s.SuccessText.Background(bg),
		WarningText: s.WarningText.Background(bg),
		DangerText:  s.DangerText.Background(bg),
		Header:      s.Header.Background(bg),
		Logo:        s.Logo.Background(bg),
		levels:      make(map[logfeed.Level]lipgloss.Style, len(s.levels)),
	}
	for lvl, style := range s.levels {
		out.levels[lvl] = style.Background(bg)
	}
	return out
}

// themes in cycle order. The first one is the default.
var themes = []Theme{
	{
		// https://github.com/EdenEast/nightfox.nvim
		Name:        "Nightfox",
		Background:  "#131a24",
		Surface:     "#192330",
		FocusBg:     "#29394f",
		BorderFocus: "#719cd6",
		MatchBg:     "#2b3b51",
		Text:        "#cdcecf",
		Muted:       "#738091",
		Faint:       "#71839b",
		Accent:      "#719cd6",
		System:      "#9d79d6",
		Success:     "#81b29a",
		Warning:     "#dbc074",
		Danger:      "#c94f6d",
	},
	{
		// https://github.com/rebelot/kanagawa.nvim
		Name:        "Kanagawa",
		Background:  "#16161D",
		Surface:     "#1F1F28",
		FocusBg:     "#2A2A37",
		BorderFocus: "#7E9CD8",
		MatchBg:     "#2D4F67",
		Text:        "#DCD7BA",
		Muted:       "#C8C093",
		Faint:       "#727169",
		Accent:      "#7E9CD8",
		System:      "#957FB8",
		Success:     "#98BB6C",
		Warning:     "#E6C384",
		Danger:      "#E46876",
	},
	{
		// Tailwind slate with sky accents
		Name:        "Slate",
		Background:  "#020617",
		Surface:     "#0f172a",
		FocusBg:     "#283548",
		BorderFocus: "#38bdf8",
		MatchBg:     "#0284c7",
		Text:        "#f1f5f9",
		Muted:       "#94a3b8",
		Faint:       "#64748b",
		Accent:      "#38bdf8",
		System:      "#a78bfa",
		Success:     "#22c55e",
		Warning:     "#f59e0b",
		Danger:      "#ef4444",
	},
}

// GetTheme returns a theme by name, or the default theme.
func GetTheme(name string) Theme {
	for _, t := range themes {
		if t.Name == name {
			return t
		}
	}
	return themes[0]
}

// NextTheme returns the theme after current in the cycle.
func NextTheme(current string) string {
	for i, t := range themes {
		if t.Name == current {
			return themes[(i+1)%len(themes)].Name
		}
	}
	return themes[0].Name
}

// ThemeNames returns available theme names in cycle order.
func ThemeNames() []string {
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}
