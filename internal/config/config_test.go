package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServerURL != defaultServerURL {
		t.Fatalf("ServerURL = %q, want %q", cfg.ServerURL, defaultServerURL)
	}
	if cfg.Transport != TransportSSE || cfg.InitialLimit != 50 || cfg.BufferLimit != 5000 {
		t.Fatalf("defaults = %+v", cfg)
	}

	wantLogFile, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath(defaultLogFile) returned error: %v", err)
	}
	if cfg.LogFile != wantLogFile {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, wantLogFile)
	}
	if !strings.HasPrefix(cfg.Server.DBPath, home) {
		t.Fatalf("Server.DBPath = %q, want it under HOME %q", cfg.Server.DBPath, home)
	}
	if cfg.Server.Retention() != 30*24*time.Hour {
		t.Fatalf("Retention = %v, want 30 days", cfg.Server.Retention())
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
server_url = "  10.0.0.5:9999  "
transport = " WS "
initial_limit = 120
buffer_limit = 800
log_file = "  ~/.agentlog/debug.log  "

[server]
listen = "0.0.0.0:8080"
db_path = "~/data/logs.db"
retention_days = 7
ingest_rate = 5.5
ingest_burst = 9
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServerURL != "10.0.0.5:9999" {
		t.Fatalf("ServerURL = %q, want %q", cfg.ServerURL, "10.0.0.5:9999")
	}
	if cfg.Transport != TransportWebSocket {
		t.Fatalf("Transport = %q, want websocket", cfg.Transport)
	}
	if cfg.InitialLimit != 120 || cfg.BufferLimit != 800 {
		t.Fatalf("limits = %d/%d, want 120/800", cfg.InitialLimit, cfg.BufferLimit)
	}
	if cfg.LogFile != filepath.Join(home, ".agentlog", "debug.log") {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
	if cfg.Server.Listen != "0.0.0.0:8080" || cfg.Server.DBPath != filepath.Join(home, "data", "logs.db") {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Server.Retention() != 7*24*time.Hour || cfg.Server.IngestRate != 5.5 || cfg.Server.IngestBurst != 9 {
		t.Fatalf("server limits = %+v", cfg.Server)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
server_url = "   "
transport = ""
initial_limit = 0
buffer_limit = -3
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServerURL != defaultServerURL || cfg.Transport != TransportSSE {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
	if cfg.InitialLimit != defaultInitialLimit || cfg.BufferLimit != defaultBufferLimit {
		t.Fatalf("limits = %d/%d, want defaults", cfg.InitialLimit, cfg.BufferLimit)
	}
}

func TestLoad_FileTransportNeedsInitialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`transport = "file"`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted transport=file without initial_file")
	}
}

func TestLoad_UnknownTransportFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`transport = "smoke-signals"`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "unknown transport") {
		t.Fatalf("Load error = %v, want unknown transport", err)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`server_url = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestNormalizeTransport(t *testing.T) {
	tests := map[string]string{
		"":          TransportSSE,
		"SSE":       TransportSSE,
		"ws":        TransportWebSocket,
		"websocket": TransportWebSocket,
		" demo ":    TransportDemo,
		"file":      TransportFile,
	}
	for in, want := range tests {
		got, err := NormalizeTransport(in)
		if err != nil || got != want {
			t.Errorf("NormalizeTransport(%q) = %q, %v, want %q", in, got, err, want)
		}
	}
}
