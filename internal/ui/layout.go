package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the header drops labels.
	LayoutCompactWidth = 100
)

// Vertical space taken by everything except the feed viewport: header,
// command bar, the box borders, the prompt line and the status line.
const chromeHeight = 6

// Timing constants.
const (
	// DefaultUIInterval is how often the header re-reads the connection state.
	DefaultUIInterval = 500 * time.Millisecond

	// typeInterval is the delay between typewriter frames.
	typeInterval = 30 * time.Millisecond

	// typeStep is how many runes each typewriter frame reveals.
	typeStep = 2
)
