// Package app is the composition root for agentlog.
//
// # Overview
//
// It wires configuration, preferences, the connection state, the log feed
// and one of three front ends together:
//
//   - Run: the Bubble Tea terminal UI
//   - Tail: plain formatted lines on an io.Writer
//   - Serve: the companion log service (SQLite archive, HTTP, SSE, WebSocket)
//
// # Feed
//
// Every client front end drives the same feed. The transport picks a bulk
// loader and a live source:
//
//	transport   bulk load                   live source
//	sse         GET /api/logs?limit=N       GET /api/logs/stream
//	websocket   GET /api/logs?limit=N       GET /api/logs/ws
//	file        last N lines of the file    fsnotify follow of the file
//	demo        demo.Seed                   scripted entries, then end
//
// The feed runs in this order:
//
//	┌──────────────┐
//	│ bulk load    │ failure: recorded in state.Store, feed starts empty
//	└──────┬───────┘
//	       ├─────> sink.Loaded(entries)
//	       │
//	┌──────▼───────┐
//	│ Subscribe    │ after = last loaded entry
//	└──────┬───────┘
//	       ├─────> sink.Entry(e)      one at a time, arrival order
//	       └─────> sink.Status(evt)   connecting / live / degraded / closed
//
// In the TUI the sink forwards to Program.Send, so every store mutation
// happens inside the model's Update. The subscription is closed before the
// feed returns, whether the user quit, the context was cancelled or the
// source ended.
//
// # Errors
//
// Configuration and transport setup errors are returned before anything
// starts. Failures after that are logged and shown in the header; the feed
// keeps retrying with backoff and never drops entries it already shows.
//
// # Logging
//
// The TUI logs to the file named by log_file so the screen stays clean.
// Tail and Serve use the logger they are given.
package app
