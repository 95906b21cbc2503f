// Package config loads agentlog's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/agentlog/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing, empty or non-positive, use defaults
//
// # Example
//
//	server_url    = "127.0.0.1:7490"
//	transport     = "sse"            # sse | websocket | demo | file
//	initial_limit = 50
//	buffer_limit  = 5000
//	initial_file  = ""               # JSONL archive, required for transport=file
//	log_file      = "~/.local/state/agentlog/agentlog.log"
//
//	[server]
//	listen         = "127.0.0.1:7490"
//	db_path        = "~/.local/share/agentlog/logs.db"
//	retention_days = 30
//	ingest_rate    = 50
//	ingest_burst   = 100
//
// Paths accept a leading ~ and are returned absolute. String values are
// trimmed. An unknown transport or a syntax error fails with an error that
// mentions "parse config"; a missing file never does.
package config
