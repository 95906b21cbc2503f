// Package state holds the connection state shared between the feed's
// background subscription and the UI.
//
// # Overview
//
// The log entries themselves live in logfeed.Store and are only touched by
// the UI goroutine. What the subscription goroutine needs to publish is
// smaller: whether the push channel is live, how many attempts have failed,
// how long until the next retry and what the bulk load returned. Store
// keeps that behind a sync.RWMutex and hands out Snapshot copies.
//
//	Subscription goroutine:          UI goroutine:
//	  OnStatus(evt)                    snap := store.Snapshot()
//	    store.Record(evt) ──(mutex)──>   renderHeader(snap)
//
// # Update Semantics
//
//   - RecordLoad: a failed bulk load counts as a failure and keeps the
//     previous counts; a successful one resets the counter.
//   - Record: Degraded copies the failure count, error and retry delay from
//     the event; Live clears them; Closed keeps a terminal error.
//   - Touch: stamps the arrival time of the newest entry.
//
// IsOffline reports two or more consecutive failures, which the header
// shows as "offline" instead of "reconnecting".
//
// The zero value is ready to use. Snapshot copies the error value so a
// caller cannot mutate what the next reader sees.
package state
