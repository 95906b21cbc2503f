package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the feed.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Escape     key.Binding

	// Filter
	NextFilter key.Binding
	PrevFilter key.Binding
	FilterJump key.Binding

	// Navigation
	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	HalfPageUp   key.Binding
	HalfPageDown key.Binding

	// Feed actions
	ToggleAutoscroll key.Binding
	Search           key.Binding
	NextMatch        key.Binding
	PrevMatch        key.Binding

	// Search/input
	Confirm key.Binding
}

// bind builds a binding whose first key doubles as its help label unless
// label is set.
func bind(label, desc string, keys ...string) key.Binding {
	if label == "" {
		label = keys[0]
	}
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(label, desc))
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit:       bind("q", "Quit", "ctrl+c", "q"),
		Help:       bind("h/?", "Toggle help", "h", "?"),
		CycleTheme: bind("", "Cycle theme", "T"),
		Escape:     bind("", "Clear search", "esc"),

		NextFilter: bind("", "Next filter", "f"),
		PrevFilter: bind("", "Previous filter", "F"),
		FilterJump: bind("1-6", "Jump to filter", "1", "2", "3", "4", "5", "6"),

		Up:           bind("k/up", "Scroll up", "k", "up"),
		Down:         bind("j/down", "Scroll down", "j", "down"),
		Top:          bind("", "Go to top", "g", "home"),
		Bottom:       bind("", "Go to bottom", "G", "end"),
		PageUp:       bind("", "Page up", "pgup"),
		PageDown:     bind("", "Page down", "pgdown"),
		HalfPageUp:   bind("", "Half page up", "ctrl+u"),
		HalfPageDown: bind("", "Half page down", "ctrl+d"),

		ToggleAutoscroll: bind("Space", "Toggle auto-scroll", " "),
		Search:           bind("", "Search logs", "/"),
		NextMatch:        bind("", "Next match", "n"),
		PrevMatch:        bind("", "Previous match", "N"),

		Confirm: bind("", "Confirm", "enter"),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view, one column per section.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextFilter, k.PrevFilter, k.FilterJump},
		{k.Up, k.Down, k.Top, k.Bottom, k.HalfPageDown, k.HalfPageUp},
		{k.ToggleAutoscroll, k.Search, k.NextMatch, k.PrevMatch, k.Escape},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
