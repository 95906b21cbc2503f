package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/agentlog/internal/stream"
)

// Snapshot represents the latest connection state available to the UI.
type Snapshot struct {
	Status              stream.Status
	Transport           string
	Target              string
	Loaded              int // entries received by the bulk load
	Skipped             int // malformed records dropped by the bulk load
	LastUpdated         time.Time
	LastEntryAt         time.Time
	LastError           error
	ConsecutiveFailures int           // Number of consecutive connection failures
	Retry               time.Duration // wait before the next reconnect attempt
}

// IsOffline returns true when the service has been unreachable for multiple attempts.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// SetTarget records which transport and endpoint the feed reads from.
func (s *Store) SetTarget(transport, target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Transport = transport
	s.snapshot.Target = target
}

// RecordLoad records the outcome of the bulk load. When err is non-nil the
// failure counts towards IsOffline.
func (s *Store) RecordLoad(loaded, skipped int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}
	s.snapshot.Loaded = loaded
	s.snapshot.Skipped = skipped
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// Record applies a subscription status change.
func (s *Store) Record(evt stream.StatusEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Status = evt.Status
	s.snapshot.LastUpdated = time.Now()
	switch evt.Status {
	case stream.StatusLive:
		s.snapshot.LastError = nil
		s.snapshot.ConsecutiveFailures = 0
		s.snapshot.Retry = 0
	case stream.StatusDegraded:
		s.snapshot.LastError = evt.Err
		s.snapshot.ConsecutiveFailures = evt.Failures
		s.snapshot.Retry = evt.Retry
	case stream.StatusClosed:
		s.snapshot.Retry = 0
		if evt.Err != nil {
			s.snapshot.LastError = evt.Err
		}
	}
}

// Touch notes that an entry just arrived.
func (s *Store) Touch(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.LastEntryAt = at
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
