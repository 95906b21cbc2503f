// Package ui renders the agent log feed as a Bubble Tea terminal UI.
//
// The screen mirrors a terminal window: a header with the connection state
// and per-level counts, a command bar, the "Agent Log Terminal" box with one
// line per visible entry, and a blinking prompt underneath. The newest
// visible entry is typed out a few characters at a time.
//
// # Data Flow
//
// The caller owns the transports. It builds the program with NewProgram and
// forwards the bulk load, pushed entries and status changes with
// Program.Send(InitialLoad(...)), Program.Send(EntryArrived(...)) and
// Program.Send(StatusChanged(...)). The model keeps its own logfeed.Store
// and mutates it only inside Update, so the render loop is the single writer.
//
// # Key Bindings
//
//   - f / F: next / previous level filter
//   - 1-6: All, Info, Success, Warning, Error, System
//   - Space: toggle auto-scroll
//   - j/k, ctrl+d/u, pgup/pgdown: scroll (scrolling up pauses auto-scroll)
//   - g / G: top / bottom (G resumes auto-scroll)
//   - /: regex search, n/N to move between matches, Esc to clear
//   - T: cycle theme
//   - h/?: help
//   - q or Ctrl+C: quit
//
// Theme, auto-scroll and filter are saved to the prefs file whenever they
// change.
package ui
