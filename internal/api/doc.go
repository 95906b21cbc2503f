// Package api provides the HTTP client for the agentlog log service.
//
// # Overview
//
// The client covers both halves of the feed: a bulk load of recent entries
// and a push channel for entries appended afterwards. The push channel is
// exposed as a stream.Source so the caller can hand it to stream.Subscribe.
//
//	client, err := api.NewClient("127.0.0.1:7490")
//	if err != nil {
//		return err
//	}
//	entries, err := client.FetchLogs(ctx, api.DefaultLimit)
//	...
//	sub := stream.Subscribe(ctx, client.SSE(), sink, stream.Options{After: last})
//
// # API Endpoints
//
//   - GET /api/logs?limit=N: the N most recent entries, oldest first
//   - GET /api/logs/stream: server-sent events, one JSON entry per "log" event
//   - GET /api/logs/ws?after=N: WebSocket, one JSON entry per text message
//
// # Resuming
//
// Each entry carries the server's seq cursor. The SSE source sends the last
// seen seq as Last-Event-ID and the WebSocket source as the after query
// parameter, so a reconnect continues where the previous connection stopped
// instead of replaying the backlog. Without a cursor the server sends only
// new entries; sources from ResumeSource send 0 instead, which replays the
// archive from its first entry.
//
// # Request Handling
//
// Bulk requests set Accept: application/json and User-Agent: agentlog/0.1
// and time out after five seconds. Stream requests have no timeout; they end
// when the context is cancelled or the connection drops.
//
// # Error Handling
//
// Errors are wrapped with context using fmt.Errorf:
//   - "execute request: dial tcp: connection refused"
//   - "api /api/logs returned status 500"
//   - "decode response: unexpected end of JSON input"
//
// A push message that cannot be decoded, or decodes to an entry with a
// missing field or unknown level, is wrapped with stream.ErrMalformed so the
// subscription skips it and keeps reading.
package api
