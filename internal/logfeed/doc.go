// Package logfeed holds the agent log data model and the in-memory feed store.
//
// # Overview
//
// A feed is a bounded-or-unbounded, append-only, arrival-ordered list of
// Entry values. Entries come from two places: one bulk load at startup
// (LoadInitial, a full replace) and a live stream (Append, one at a time).
// Nothing is ever edited in place or removed except by retention trimming.
//
// # Core Types
//
// Entry:
//   - ID: unique within a session (not enforced here)
//   - Timestamp: when the event happened, RFC 3339 on the wire
//   - Message: free text
//   - Level: info, success, warning, error or system
//   - Seq: optional server-assigned cursor used for stream resume
//
// Store:
//   - sync.RWMutex guarded, zero value ready to use
//   - LoadInitial replaces, Append adds to the end
//   - Entries returns a defensive copy
//   - Version lets renderers skip unchanged frames
//
// Filter and Project:
//   - Filter is FilterAll or a single Level
//   - Project(entries, filter) derives the visible subsequence without
//     touching the input
//   - LatestIndex(projected) picks the entry that gets the "currently
//     arriving" treatment; it is always derived from the projected slice
//
// # Ordering
//
// The store trusts arrival order. It does not sort by timestamp and does
// not deduplicate IDs: two sources that emit the same ID both show up.
// Callers that merge a bulk load with a stream avoid the overlap by
// resuming the stream after the last loaded entry (see package stream).
//
// # Retention
//
//	store := logfeed.NewStore(5000) // keep the newest 5000
//	var unbounded logfeed.Store     // keep everything
//
// # Usage Example
//
//	store := logfeed.NewStore(0)
//	store.LoadInitial(initial)
//	store.Append(entry)
//
//	visible := logfeed.Project(store.Entries(), logfeed.FilterFor(logfeed.LevelWarning))
//	latest := logfeed.LatestIndex(visible)
package logfeed
