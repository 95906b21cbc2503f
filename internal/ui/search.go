package ui

import (
	"fmt"
	"regexp"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// searchState holds the vim-style feed search.
type searchState struct {
	active   bool
	query    string
	regex    *regexp.Regexp
	input    textinput.Model
	matches  []int // projected indices that match
	matchIdx int
}

func newSearchState() searchState {
	ti := textinput.New()
	ti.Placeholder = "Search logs..."
	ti.CharLimit = 100
	ti.Prompt = "/"
	return searchState{input: ti}
}

func (s *searchState) start() {
	s.active = true
	s.input.SetValue("")
	s.input.Focus()
}

func (s *searchState) cancel() {
	s.active = false
	s.input.Blur()
	s.input.SetValue("")
}

func (s *searchState) clear() {
	s.regex = nil
	s.query = ""
	s.matches = nil
	s.matchIdx = 0
}

// activeLine returns the projected index of the current match, or -1.
func (s searchState) activeLine() int {
	if len(s.matches) == 0 || s.matchIdx >= len(s.matches) {
		return -1
	}
	return s.matches[s.matchIdx]
}

// handleSearchInput handles keyboard input while the search prompt is open.
func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		query := m.search.input.Value()
		if query == "" {
			m.search.cancel()
			return m, nil
		}

		re, err := regexp.Compile("(?i)" + query)
		if err != nil {
			// Invalid regex, stay in search mode
			return m, nil
		}

		m.search.regex = re
		m.search.query = query
		m.search.active = false
		m.search.input.Blur()
		m.search.matchIdx = 0

		m.findSearchMatches()
		if len(m.search.matches) > 0 {
			m.scrollToSearchMatch()
		}
		m.renderFeed()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.search.cancel()
		return m, nil
	}

	var cmd tea.Cmd
	m.search.input, cmd = m.search.input.Update(msg)
	return m, cmd
}

// findSearchMatches finds all projected entries matching the current regex.
func (m *Model) findSearchMatches() {
	m.search.matches = nil
	if m.search.regex == nil {
		return
	}
	for i, e := range m.projected {
		if m.search.regex.MatchString(e.Message) {
			m.search.matches = append(m.search.matches, i)
		}
	}
	if m.search.matchIdx >= len(m.search.matches) {
		m.search.matchIdx = 0
	}
}

// nextSearchMatch moves to the next search match.
func (m *Model) nextSearchMatch() {
	if len(m.search.matches) == 0 {
		return
	}
	m.search.matchIdx = (m.search.matchIdx + 1) % len(m.search.matches)
	m.scrollToSearchMatch()
	m.renderFeed()
}

// previousSearchMatch moves to the previous search match.
func (m *Model) previousSearchMatch() {
	if len(m.search.matches) == 0 {
		return
	}
	m.search.matchIdx = (m.search.matchIdx - 1 + len(m.search.matches)) % len(m.search.matches)
	m.scrollToSearchMatch()
	m.renderFeed()
}

// scrollToSearchMatch centers the current match and stops auto-scroll so
// new entries do not pull the view away from it.
func (m *Model) scrollToSearchMatch() {
	target := m.search.activeLine()
	if target < 0 {
		return
	}
	m.scroll.enabled = false
	m.viewport.SetYOffset(max(target-m.viewport.Height/2, 0))
}

// renderSearchStatus renders the search line when a pattern is applied.
func (m Model) renderSearchStatus(styles Styles, bg BgStyle) (string, bool) {
	if m.search.regex == nil || m.search.active {
		return "", false
	}
	if len(m.search.matches) == 0 {
		return bg.FillLine(bg.Render("Pattern not found: "+m.search.query, styles.DangerText), m.width), true
	}
	line := bg.Render("/"+m.search.query, styles.AccentText) +
		bg.Render(" - ", styles.FaintText) +
		bg.Render(fmt.Sprintf("%d/%d", m.search.matchIdx+1, len(m.search.matches)), styles.WarningText) +
		bg.Render(" - Press ", styles.FaintText) +
		bg.Render("n", styles.AccentText) +
		bg.Render(" for next, ", styles.FaintText) +
		bg.Render("N", styles.AccentText) +
		bg.Render(" for previous, ", styles.FaintText) +
		bg.Render("Esc", styles.AccentText) +
		bg.Render(" to clear", styles.FaintText)
	return bg.FillLine(line, m.width), true
}
