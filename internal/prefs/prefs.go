// Package prefs persists the feed view settings a user changes at runtime:
// theme, auto-scroll and the active level filter. They live in
// ~/.config/agentlog/prefs.toml, separate from the hand-edited config.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/agentlog/internal/config"
	"github.com/five82/agentlog/internal/logfeed"
)

// Prefs holds user preferences for the feed view.
type Prefs struct {
	Theme      string `toml:"theme"`
	Autoscroll bool   `toml:"autoscroll"`
	Filter     string `toml:"filter"`
}

const (
	defaultPrefsPath = "~/.config/agentlog/prefs.toml"
	defaultTheme     = "Nightfox"
)

// Default returns the preferences used when nothing is saved.
func Default() Prefs {
	return Prefs{Theme: defaultTheme, Autoscroll: true, Filter: string(logfeed.FilterAll)}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path (empty means DefaultPath). A missing file
// yields the defaults and no error. An unreadable or corrupt file also yields
// usable preferences, together with an error the caller may log; the feed
// should start either way.
func Load(path string) (Prefs, error) {
	resolved, err := config.ExpandPath(orDefault(path))
	if err != nil {
		return Default(), fmt.Errorf("resolve prefs path: %w", err)
	}

	data, err := os.ReadFile(resolved)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("read prefs: %w", err)
	}

	p := Default()
	if err := toml.Unmarshal(data, &p); err != nil {
		return Default(), fmt.Errorf("parse prefs %s: %w", resolved, err)
	}
	return p.normalize(), nil
}

// normalize fills blanks and replaces a filter this build does not know.
func (p Prefs) normalize() Prefs {
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	filter, err := logfeed.ParseFilter(p.Filter)
	if err != nil {
		filter = logfeed.FilterAll
	}
	p.Filter = string(filter)
	return p
}

// Save writes preferences to path, creating directories as needed. The file
// is replaced atomically so a crash never leaves half a file behind.
func Save(path string, p Prefs) error {
	resolved, err := config.ExpandPath(orDefault(path))
	if err != nil {
		return fmt.Errorf("resolve prefs path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p.normalize())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), resolved); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

func orDefault(path string) string {
	if strings.TrimSpace(path) == "" {
		return defaultPrefsPath
	}
	return path
}
