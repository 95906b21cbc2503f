package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/agentlog/internal/logfeed"
	"github.com/five82/agentlog/internal/prefs"
	"github.com/five82/agentlog/internal/state"
	"github.com/five82/agentlog/internal/stream"
)

// Options configures the UI.
type Options struct {
	Context context.Context
	// State is the connection state written by the subscription.
	State *state.Store
	// Prefs seeds the theme, auto-scroll and filter.
	Prefs     prefs.Prefs
	PrefsPath string
	// BufferLimit caps the entries kept in memory. Zero keeps everything.
	BufferLimit int
	PollTick    time.Duration
	Logger      *zap.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	conn      *state.Store
	prefsPath string
	pollTick  time.Duration
	logger    *zap.Logger
	keys      keyMap
	now       func() time.Time

	// UI state
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool
	cursorOn bool

	// Data state. The store is only mutated from Update.
	store     *logfeed.Store
	filter    logfeed.Filter
	projected []logfeed.Entry
	counts    map[logfeed.Level]int
	snapshot  state.Snapshot
	// Store version and filter that projected was built from.
	projectedVersion uint64
	projectedFilter  logfeed.Filter

	// Feed state
	viewport viewport.Model
	scroll   autoScroll
	typing   typewriter
	search   searchState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = DefaultUIInterval
	}

	p := opts.Prefs
	if p.Theme == "" {
		p = prefs.Default()
	}
	filter, err := logfeed.ParseFilter(p.Filter)
	if err != nil {
		filter = logfeed.FilterAll
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	conn := opts.State
	if conn == nil {
		conn = &state.Store{}
	}

	return Model{
		ctx:       ctx,
		conn:      conn,
		prefsPath: opts.PrefsPath,
		pollTick:  pollTick,
		logger:    logger,
		keys:      DefaultKeyMap(),
		now:       time.Now,
		theme:     GetTheme(p.Theme),
		cursorOn:  true,
		store:     logfeed.NewStore(opts.BufferLimit),
		filter:    filter,
		counts:    map[logfeed.Level]int{},
		snapshot:  conn.Snapshot(),
		viewport:  viewport.New(0, 0),
		scroll:    autoScroll{enabled: p.Autoscroll},
		search:    newSearchState(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeViewport()
		m.renderFeed()
		if m.scroll.enabled {
			m.viewport.GotoBottom()
		}
		return m, nil

	case initialLoadMsg:
		m.store.LoadInitial(msg.entries)
		m.snapshot = m.conn.Snapshot()
		return m, m.syncFeed()

	case entryMsg:
		m.store.Append(logfeed.Entry(msg))
		return m, m.syncFeed()

	case statusMsg:
		m.snapshot = m.conn.Snapshot()
		return m, nil

	case typeTickMsg:
		if m.typing.advance() {
			m.renderFeed()
			return m, typeTickCmd()
		}
		m.renderFeed()
		return m, nil

	case tickMsg:
		m.snapshot = m.conn.Snapshot()
		m.cursorOn = !m.cursorOn
		return m, tickCmd(m.pollTick)
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.search.active {
		return m.handleSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.renderFeed()
		return m, nil

	case key.Matches(msg, m.keys.NextFilter):
		return m, m.setFilter(m.filter.Next())

	case key.Matches(msg, m.keys.PrevFilter):
		return m, m.setFilter(m.filter.Prev())

	case key.Matches(msg, m.keys.FilterJump):
		all := logfeed.Filters()
		idx := int(msg.String()[0] - '1')
		if idx >= 0 && idx < len(all) {
			return m, m.setFilter(all[idx])
		}
		return m, nil
	}

	return m.handleFeedKey(msg)
}

// setFilter switches the projection and remembers the choice.
func (m *Model) setFilter(f logfeed.Filter) tea.Cmd {
	if f == m.filter {
		return nil
	}
	m.filter = f
	cmd := m.syncFeed()
	m.savePrefs()
	return cmd
}

// savePrefs persists theme, auto-scroll and filter.
func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{
		Theme:      m.theme.Name,
		Autoscroll: m.scroll.enabled,
		Filter:     string(m.filter),
	}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.logger.Warn("save prefs failed", zap.String("path", m.prefsPath), zap.Error(err))
	}
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	return m.renderHeader() + "\n" +
		m.renderCommandBar() + "\n" +
		m.renderFeedView()
}

// Messages

type tickMsg time.Time

type typeTickMsg struct{}

type initialLoadMsg struct {
	entries []logfeed.Entry
}

type entryMsg logfeed.Entry

type statusMsg stream.StatusEvent

// InitialLoad wraps the bulk-loaded entries for Program.Send. A failed load
// sends an empty slice; the failure itself lives in the state store.
func InitialLoad(entries []logfeed.Entry) tea.Msg {
	return initialLoadMsg{entries: entries}
}

// EntryArrived wraps one pushed entry for Program.Send.
func EntryArrived(e logfeed.Entry) tea.Msg {
	return entryMsg(e)
}

// StatusChanged wraps a subscription status change for Program.Send.
func StatusChanged(evt stream.StatusEvent) tea.Msg {
	return statusMsg(evt)
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func typeTickCmd() tea.Cmd {
	return tea.Tick(typeInterval, func(time.Time) tea.Msg {
		return typeTickMsg{}
	})
}

// NewProgram builds the Bubble Tea program for the feed. The caller feeds it
// with Program.Send and runs it with Program.Run.
func NewProgram(opts Options) *tea.Program {
	m := New(opts)
	return tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
}
