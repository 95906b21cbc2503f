package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

var helpSectionTitles = []string{"Filter", "Navigation", "Feed", "General"}

const helpWidth = 52

// renderHelp renders the key reference as a centered modal.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	h := help.New()
	h.Styles.FullKey = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Warning)).Width(12)
	h.Styles.FullDesc = styles.Text
	h.Styles.FullSeparator = styles.FaintText

	sections := []string{
		styles.Text.Bold(true).Render("Keyboard Shortcuts") + "\n" +
			styles.FaintText.Render(strings.Repeat("─", 30)),
	}
	for i, bindings := range m.keys.FullHelp() {
		title := ""
		if i < len(helpSectionTitles) {
			title = styles.AccentText.Bold(true).Render(helpSectionTitles[i]) + "\n"
		}
		sections = append(sections, title+h.FullHelpView([][]key.Binding{bindings}))
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(helpWidth)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(strings.Join(sections, "\n\n")),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}
