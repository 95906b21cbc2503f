package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Transport names accepted in config and on the command line.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
	TransportDemo      = "demo"
	TransportFile      = "file"
)

// Config captures everything agentlog reads from config.toml.
type Config struct {
	ServerURL    string
	Transport    string
	InitialLimit int
	BufferLimit  int
	InitialFile  string
	LogFile      string
	Server       ServerConfig
}

// ServerConfig configures `agentlog serve`.
type ServerConfig struct {
	Listen        string
	DBPath        string
	RetentionDays int
	IngestRate    float64 // accepted POST requests per second
	IngestBurst   int
}

const (
	defaultConfigPath    = "~/.config/agentlog/config.toml"
	defaultServerURL     = "127.0.0.1:7490"
	defaultTransport     = TransportSSE
	defaultInitialLimit  = 50
	defaultBufferLimit   = 5000
	defaultLogFile       = "~/.local/state/agentlog/agentlog.log"
	defaultListen        = "127.0.0.1:7490"
	defaultDBPath        = "~/.local/share/agentlog/logs.db"
	defaultRetentionDays = 30
	defaultIngestRate    = 50
	defaultIngestBurst   = 100
)

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		ServerURL:    defaultServerURL,
		Transport:    defaultTransport,
		InitialLimit: defaultInitialLimit,
		BufferLimit:  defaultBufferLimit,
		LogFile:      mustExpand(defaultLogFile),
		Server: ServerConfig{
			Listen:        defaultListen,
			DBPath:        mustExpand(defaultDBPath),
			RetentionDays: defaultRetentionDays,
			IngestRate:    defaultIngestRate,
			IngestBurst:   defaultIngestBurst,
		},
	}
}

// Load locates and parses the agentlog config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		ServerURL    string `toml:"server_url"`
		Transport    string `toml:"transport"`
		InitialLimit int    `toml:"initial_limit"`
		BufferLimit  int    `toml:"buffer_limit"`
		InitialFile  string `toml:"initial_file"`
		LogFile      string `toml:"log_file"`
		Server       struct {
			Listen        string  `toml:"listen"`
			DBPath        string  `toml:"db_path"`
			RetentionDays int     `toml:"retention_days"`
			IngestRate    float64 `toml:"ingest_rate"`
			IngestBurst   int     `toml:"ingest_burst"`
		} `toml:"server"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.ServerURL); v != "" {
		cfg.ServerURL = v
	}
	if v := strings.TrimSpace(raw.Transport); v != "" {
		transport, err := NormalizeTransport(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		cfg.Transport = transport
	}
	if raw.InitialLimit > 0 {
		cfg.InitialLimit = raw.InitialLimit
	}
	if raw.BufferLimit > 0 {
		cfg.BufferLimit = raw.BufferLimit
	}
	if v := strings.TrimSpace(raw.InitialFile); v != "" {
		cfg.InitialFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}

	if v := strings.TrimSpace(raw.Server.Listen); v != "" {
		cfg.Server.Listen = v
	}
	if v := strings.TrimSpace(raw.Server.DBPath); v != "" {
		cfg.Server.DBPath = mustExpand(v)
	}
	if raw.Server.RetentionDays > 0 {
		cfg.Server.RetentionDays = raw.Server.RetentionDays
	}
	if raw.Server.IngestRate > 0 {
		cfg.Server.IngestRate = raw.Server.IngestRate
	}
	if raw.Server.IngestBurst > 0 {
		cfg.Server.IngestBurst = raw.Server.IngestBurst
	}

	if cfg.Transport == TransportFile && cfg.InitialFile == "" {
		return Config{}, fmt.Errorf("parse config: transport %q requires initial_file", TransportFile)
	}
	return cfg, nil
}

// NormalizeTransport canonicalizes a transport name.
func NormalizeTransport(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", TransportSSE:
		return TransportSSE, nil
	case TransportWebSocket, "ws":
		return TransportWebSocket, nil
	case TransportDemo:
		return TransportDemo, nil
	case TransportFile:
		return TransportFile, nil
	default:
		return "", fmt.Errorf("unknown transport %q", value)
	}
}

// Retention returns how long the log service keeps entries.
func (s ServerConfig) Retention() time.Duration {
	days := s.RetentionDays
	if days <= 0 {
		days = defaultRetentionDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
