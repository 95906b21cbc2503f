package logfeed

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Level is the severity of an entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelSystem  Level = "system"
)

// Levels lists every level in dropdown order.
var Levels = []Level{LevelInfo, LevelSuccess, LevelWarning, LevelError, LevelSystem}

// ErrUnknownLevel is returned when a level string is outside the closed set.
var ErrUnknownLevel = errors.New("unknown log level")

var levelAliases = map[string]Level{
	"info":    LevelInfo,
	"success": LevelSuccess,
	"ok":      LevelSuccess,
	"warning": LevelWarning,
	"warn":    LevelWarning,
	"error":   LevelError,
	"err":     LevelError,
	"system":  LevelSystem,
}

// ParseLevel maps a level name (case-insensitive, common aliases allowed) to a Level.
func ParseLevel(value string) (Level, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	if lvl, ok := levelAliases[key]; ok {
		return lvl, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLevel, value)
}

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	for _, known := range Levels {
		if l == known {
			return true
		}
	}
	return false
}

// Entry is one immutable record of agent activity.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Level     Level     `json:"level"`
	Seq       uint64    `json:"seq,omitempty"`
}

// IsZero reports whether e is the zero entry.
func (e Entry) IsZero() bool {
	return e.ID == "" && e.Seq == 0 && e.Timestamp.IsZero() && e.Message == ""
}

// Validate reports the first structural problem with e, if any.
func (e Entry) Validate() error {
	switch {
	case strings.TrimSpace(e.ID) == "":
		return fmt.Errorf("missing required field: id")
	case strings.TrimSpace(e.Message) == "":
		return fmt.Errorf("missing required field: message")
	case e.Timestamp.IsZero():
		return fmt.Errorf("missing required field: timestamp")
	case !e.Level.Valid():
		return fmt.Errorf("%w: %q", ErrUnknownLevel, string(e.Level))
	}
	return nil
}
