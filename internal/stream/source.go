package stream

import (
	"context"
	"errors"

	"github.com/five82/agentlog/internal/logfeed"
)

// ErrMalformed marks a message that arrived intact but could not be decoded
// into an entry. Subscriptions skip such messages and keep reading.
var ErrMalformed = errors.New("malformed log message")

// Source opens connections to an ordered stream of log entries.
// Implementations must deliver entries in display order.
type Source interface {
	// Open connects to the stream. after is the last entry the caller has
	// already seen (zero value for none); sources that can resume use it to
	// avoid replaying entries.
	Open(ctx context.Context, after logfeed.Entry) (Conn, error)
}

// Conn is one open stream connection.
type Conn interface {
	// Next blocks until the next entry arrives, ctx is cancelled, or the
	// stream ends. A finite stream reports io.EOF.
	Next(ctx context.Context) (logfeed.Entry, error)
	Close() error
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, after logfeed.Entry) (Conn, error)

// Open calls f.
func (f SourceFunc) Open(ctx context.Context, after logfeed.Entry) (Conn, error) {
	return f(ctx, after)
}
