// Package stream bridges push-based log sources into a feed.
//
// # Overview
//
// A Source is anything that can deliver an ordered sequence of entries:
// an SSE endpoint, a WebSocket, a followed JSONL file or the scripted demo
// feed. Subscribe owns the connection lifecycle so the consumer only sees a
// sink callback:
//
//	sub := stream.Subscribe(ctx, src, func(e logfeed.Entry) {
//		program.Send(entryMsg(e))
//	}, stream.Options{After: lastLoaded})
//	defer sub.Close()
//
// # Lifecycle
//
//	Connecting ──Open ok──> Live ──io.EOF──> Closed
//	     ^                    │
//	     │                 failure
//	     │                    v
//	     └────backoff──── Degraded
//
// Open failures and mid-stream failures both move to Degraded, wait with
// exponential backoff (base doubled per failure, capped at 30s) and reopen
// with After set to the last delivered entry, so a resumable source picks
// up where it left off. A finite source ends with io.EOF; Options.Reconnect
// turns that into another reopen instead.
//
// # Guarantees
//
//   - Entries reach the sink in the order the connection yields them.
//   - Nothing is dropped by the subscription; a slow sink simply slows the
//     reader, which leaves buffering to the transport.
//   - Messages wrapped with ErrMalformed are logged and skipped.
//   - Close is idempotent and blocks until the goroutine exits; after it
//     returns the sink is never invoked again, whatever the upstream does.
package stream
