// Package logtail reads and follows JSONL log archives.
//
// # Overview
//
// An archive holds one JSON-encoded entry per line, the same shape the log
// service sends on the wire. The package covers the file transport of the
// feed: a bulk load of the newest entries and a stream.Source that tails the
// file as it grows.
//
// # Reading
//
// Read extracts the last maxLines of a file with a ring buffer, so memory is
// O(maxLines) regardless of file size. ReadEntries decodes those lines and
// skips the ones that are not valid entries:
//
//	entries, skipped, err := logtail.ReadEntries(path, 50)
//
// A missing file yields no lines and no error.
//
// # Following
//
// Follow opens the file, seeks just past the last line holding the entry it
// is asked to resume after (matched by seq, or by id when either seq is
// unknown) and then waits
// for fsnotify write events, re-checking on a short poll as a fallback.
// Partial lines are held until their newline arrives. Truncation, removal
// and rename end the connection with ErrRotated. When the subscription
// reopens the path and finds a different or shorter file, it reads the new
// file from the start.
package logtail
