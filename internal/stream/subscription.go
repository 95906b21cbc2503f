package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/agentlog/internal/logfeed"
)

// Status describes the health of a subscription.
type Status int

const (
	StatusConnecting Status = iota
	StatusLive
	StatusDegraded
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusLive:
		return "live"
	case StatusDegraded:
		return "degraded"
	case StatusClosed:
		return "closed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// StatusEvent is reported whenever the subscription changes state.
type StatusEvent struct {
	Status   Status
	Err      error         // set for StatusDegraded and a failed StatusClosed
	Failures int           // consecutive failures so far
	Retry    time.Duration // wait before the next attempt when degraded
}

// Options configure Subscribe.
type Options struct {
	// After is the last entry already shown; the first Open resumes from it.
	After logfeed.Entry
	// Reconnect reopens the source after it reports io.EOF.
	Reconnect bool
	// BaseBackoff is the first retry delay. Zero uses 2s.
	BaseBackoff time.Duration
	// MaxFailures stops the subscription after that many consecutive
	// failures. Zero retries forever.
	MaxFailures int
	// OnStatus receives state changes. It runs on the subscription goroutine.
	OnStatus func(StatusEvent)
	Logger   *zap.Logger
}

// Subscription pumps entries from a Source into a sink until closed.
type Subscription struct {
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	err  error
	last logfeed.Entry
}

// Subscribe starts delivering entries from src to sink in arrival order.
// sink is called from a single goroutine, one entry at a time. After Close
// returns, sink is never called again.
func Subscribe(ctx context.Context, src Source, sink func(logfeed.Entry), opts Options) *Subscription {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		cancel: cancel,
		done:   make(chan struct{}),
		last:   opts.After,
	}
	go s.run(ctx, src, sink, opts)
	return s
}

// Close stops the subscription and waits for its goroutine to exit.
// It is safe to call more than once and from any state.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(s.cancel)
	<-s.done
}

// Done is closed once the subscription has stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the subscription, if any.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Last returns the most recently delivered entry.
func (s *Subscription) Last() logfeed.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Subscription) run(ctx context.Context, src Source, sink func(logfeed.Entry), opts Options) {
	defer close(s.done)
	log := opts.Logger

	failures := 0
	for {
		s.report(opts, StatusEvent{Status: StatusConnecting, Failures: failures})

		conn, err := src.Open(ctx, s.Last())
		if err != nil {
			if ctx.Err() != nil {
				s.stop(opts, nil)
				return
			}
			failures++
			log.Warn("log stream connect failed", zap.Error(err), zap.Int("failures", failures))
			if !s.backoff(ctx, opts, failures, fmt.Errorf("connect: %w", err)) {
				return
			}
			continue
		}

		s.report(opts, StatusEvent{Status: StatusLive})
		delivered, err := s.pump(ctx, conn, sink, log)
		_ = conn.Close()
		if delivered {
			failures = 0
		}

		switch {
		case ctx.Err() != nil:
			s.stop(opts, nil)
			return
		case errors.Is(err, io.EOF):
			if !opts.Reconnect {
				log.Debug("log stream ended")
				s.stop(opts, nil)
				return
			}
			if !s.backoff(ctx, opts, 0, nil) {
				return
			}
		default:
			failures++
			log.Warn("log stream interrupted", zap.Error(err), zap.Int("failures", failures))
			if !s.backoff(ctx, opts, failures, err) {
				return
			}
		}
	}
}

// pump reads from conn until it fails. It reports whether any entry was delivered.
func (s *Subscription) pump(ctx context.Context, conn Conn, sink func(logfeed.Entry), log *zap.Logger) (bool, error) {
	delivered := false
	for {
		entry, err := conn.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrMalformed) {
				log.Warn("skipping malformed log message", zap.Error(err))
				continue
			}
			return delivered, err
		}
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		sink(entry)
		delivered = true

		s.mu.Lock()
		s.last = entry
		s.mu.Unlock()
	}
}

// backoff waits before the next attempt. It returns false when the
// subscription should stop.
func (s *Subscription) backoff(ctx context.Context, opts Options, failures int, cause error) bool {
	if opts.MaxFailures > 0 && failures >= opts.MaxFailures {
		s.stop(opts, fmt.Errorf("giving up after %d failures: %w", failures, cause))
		return false
	}

	delay := calculateBackoff(failures, opts.BaseBackoff)
	if cause != nil {
		s.report(opts, StatusEvent{Status: StatusDegraded, Err: cause, Failures: failures, Retry: delay})
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		s.stop(opts, nil)
		return false
	case <-timer.C:
		return true
	}
}

func (s *Subscription) stop(opts Options, err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.report(opts, StatusEvent{Status: StatusClosed, Err: err})
}

func (s *Subscription) report(opts Options, evt StatusEvent) {
	if opts.OnStatus != nil {
		opts.OnStatus(evt)
	}
}
