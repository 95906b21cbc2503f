package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/agentlog/internal/logfeed"
)

const feedTitle = "Agent Log Terminal"

// autoScroll keeps the newest entry in view while enabled.
type autoScroll struct {
	enabled bool
	lastLen int
}

// apply re-evaluates the scroll position after the projection was re-rendered.
// It only moves the viewport when the projected length changed and the
// controller is enabled; a disabled controller never touches the offset.
func (a *autoScroll) apply(vp *viewport.Model, projectedLen int) {
	if projectedLen == a.lastLen {
		return
	}
	a.lastLen = projectedLen
	if a.enabled {
		vp.GotoBottom()
	}
}

// set turns the controller on or off. Turning it on jumps to the bottom.
func (a *autoScroll) set(vp *viewport.Model, on bool) {
	a.enabled = on
	if on {
		vp.GotoBottom()
	}
}

// typewriter reveals the latest projected entry a few runes at a time.
type typewriter struct {
	key     string
	shown   int
	total   int
	ticking bool
}

func entryKey(e logfeed.Entry) string {
	return fmt.Sprintf("%s#%d", e.ID, e.Seq)
}

// track points the typewriter at the current latest entry. It returns true
// when a new frame chain has to be started.
func (t *typewriter) track(latest logfeed.Entry, ok bool) bool {
	if !ok {
		t.key, t.shown, t.total = "", 0, 0
		return false
	}
	if k := entryKey(latest); k != t.key {
		t.key = k
		t.shown = 0
		t.total = len([]rune(flatten(latest.Message)))
	}
	if t.done() || t.ticking {
		return false
	}
	t.ticking = true
	return true
}

// advance reveals the next frame and reports whether more frames remain.
func (t *typewriter) advance() bool {
	t.shown += typeStep
	if t.shown >= t.total {
		t.shown = t.total
		t.ticking = false
		return false
	}
	return true
}

func (t typewriter) done() bool {
	return t.shown >= t.total
}

// syncFeed re-projects the store and refreshes everything derived from it.
func (m *Model) syncFeed() tea.Cmd {
	if v := m.store.Version(); v != m.projectedVersion || m.filter != m.projectedFilter {
		all := m.store.Entries()
		m.projected = logfeed.Project(all, m.filter)
		m.counts = logfeed.Counts(all)
		m.projectedVersion, m.projectedFilter = v, m.filter
	}

	var cmd tea.Cmd
	idx := logfeed.LatestIndex(m.projected)
	var latest logfeed.Entry
	if idx >= 0 {
		latest = m.projected[idx]
	}
	if m.typing.track(latest, idx >= 0) {
		cmd = typeTickCmd()
	}

	m.findSearchMatches()
	m.renderFeed()
	m.scroll.apply(&m.viewport, len(m.projected))
	return cmd
}

func (m *Model) resizeViewport() {
	m.viewport.Width = max(m.width-4, 1)
	m.viewport.Height = max(m.height-chromeHeight, 1)
}

// renderFeed pushes the projected entries into the viewport.
func (m *Model) renderFeed() {
	m.viewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))
	m.viewport.SetContent(m.renderFeedContent())
}

// renderFeedContent renders one line per projected entry.
func (m *Model) renderFeedContent() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	width := m.viewport.Width

	if len(m.projected) == 0 {
		return bg.FillLine(bg.Render("No logs to display", styles.MutedText), width)
	}

	matchSet := make(map[int]bool, len(m.search.matches))
	for _, idx := range m.search.matches {
		matchSet[idx] = true
	}
	activeMatch := m.search.activeLine()
	latest := logfeed.LatestIndex(m.projected)

	var b strings.Builder
	for i, e := range m.projected {
		clock := formatClock(e.Timestamp)
		room := max(width-len(clock)-2, 1)
		message := flatten(e.Message)

		typing := i == latest && !m.typing.done() && m.typing.key == entryKey(e)
		if typing {
			message = revealRunes(message, m.typing.shown)
		}
		message = truncate(message, room)

		var line string
		switch {
		case i == activeMatch:
			hl := NewBgStyle(m.theme.MatchBg)
			line = hl.Render(clock, styles.FaintText) + hl.Space() +
				hl.Render(message, styles.LevelStyle(e.Level))
		case matchSet[i]:
			line = bg.Render(clock, styles.AccentText) + bg.Space() +
				bg.Render(message, styles.LevelStyle(e.Level).Underline(true))
		default:
			line = bg.Render(clock, styles.MutedText) + bg.Space() +
				bg.Render(message, styles.LevelStyle(e.Level))
		}
		if typing {
			line += bg.Render("█", styles.AccentText)
		}

		b.WriteString(bg.FillLine(line, width))
		if i < len(m.projected)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderFeedView renders the boxed feed, the prompt and the status line.
func (m Model) renderFeedView() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Background)

	box := m.renderBox(feedTitle, m.viewport.View(), m.width, m.viewport.Height+2)

	cursor := bg.Space()
	if m.cursorOn {
		cursor = bg.Render("█", styles.AccentText)
	}
	prompt := bg.FillLine(bg.Render(">", styles.AccentText)+bg.Space()+cursor, m.width)

	return box + "\n" + prompt + "\n" + m.renderFeedStatus(styles.WithBackground(m.theme.Background), bg)
}

// renderBox draws a rounded border around content with the title set into
// the top edge behind the three terminal dots.
func (m Model) renderBox(title, content string, width, height int) string {
	border := lipgloss.RoundedBorder()
	borderColor := lipgloss.Color(m.theme.BorderFocus)
	fill := lipgloss.Color(m.theme.FocusBg)

	body := lipgloss.NewStyle().
		Border(border).
		BorderForeground(borderColor).
		BorderBackground(fill).
		Background(fill).
		Padding(0, 1).
		Width(max(width-2, 1)).
		Height(max(height-2, 1)).
		Render(content)

	lines := strings.Split(body, "\n")
	lines[0] = m.renderBoxTop(title, width)
	return strings.Join(lines, "\n")
}

func (m Model) renderBoxTop(title string, width int) string {
	border := lipgloss.RoundedBorder()
	fill := lipgloss.Color(m.theme.FocusBg)
	edge := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.BorderFocus)).Background(fill)
	dot := func(color string) string {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Background(fill).Render("●")
	}
	label := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Muted)).Background(fill).
		Render(" " + title + " ")

	head := edge.Render(border.TopLeft+border.Top+" ") +
		dot(m.theme.Danger) + dot(m.theme.Warning) + dot(m.theme.Success) + label
	rest := max(width-lipgloss.Width(head)-1, 0)
	return head + edge.Render(strings.Repeat(border.Top, rest)+border.TopRight)
}

// renderFeedStatus renders the line under the prompt.
func (m Model) renderFeedStatus(styles Styles, bg BgStyle) string {
	if line, ok := m.renderSearchStatus(styles, bg); ok {
		return line
	}

	autoscroll := "off"
	if m.scroll.enabled {
		autoscroll = "on"
	}
	parts := []string{
		bg.Render(fmt.Sprintf("%d/%d entries", len(m.projected), m.store.Len()), styles.FaintText),
		bg.Render("auto-scroll "+autoscroll, styles.FaintText),
	}
	if m.filter != logfeed.FilterAll {
		parts = append(parts, bg.Render("filter: "+m.filter.Label(), styles.MutedText))
	}
	if m.search.active {
		parts = append(parts, bg.Render("search: "+m.search.input.View(), styles.AccentText))
	}
	if target := m.snapshot.Target; target != "" {
		parts = append(parts, bg.Render(m.snapshot.Transport+" "+truncateMiddle(target, 40), styles.AccentText))
	}

	sep := bg.Space() + bg.Render("•", styles.FaintText) + bg.Space()
	return bg.FillLine(strings.Join(parts, sep), m.width)
}

// handleFeedKey processes scrolling, auto-scroll and search keys.
func (m Model) handleFeedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleAutoscroll):
		m.scroll.set(&m.viewport, !m.scroll.enabled)
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.search.start()
		return m, nil

	case key.Matches(msg, m.keys.NextMatch):
		m.nextSearchMatch()
		return m, nil

	case key.Matches(msg, m.keys.PrevMatch):
		m.previousSearchMatch()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		if m.search.regex != nil {
			m.search.clear()
			m.renderFeed()
		}
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		m.scroll.enabled = false
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.scroll.set(&m.viewport, true)
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.viewport.ScrollUp(1)
		m.scroll.enabled = false
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.viewport.ScrollDown(1)
		return m, nil

	case key.Matches(msg, m.keys.HalfPageUp):
		m.viewport.HalfPageUp()
		m.scroll.enabled = false
		return m, nil

	case key.Matches(msg, m.keys.HalfPageDown):
		m.viewport.HalfPageDown()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.PageUp()
		m.scroll.enabled = false
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.PageDown()
		return m, nil
	}

	return m, nil
}

// flatten collapses whitespace so every entry renders on one line.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
