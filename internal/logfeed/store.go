package logfeed

import "sync"

// Store holds the ordered, append-only sequence of entries shown by a feed.
// The zero value is an unbounded, empty store ready for use.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
	version uint64
}

// NewStore returns a store that retains at most limit entries.
// A limit of zero or less keeps everything.
func NewStore(limit int) *Store {
	return &Store{limit: limit}
}

// LoadInitial replaces the current contents with entries.
func (s *Store) LoadInitial(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = cloneEntries(entries)
	s.trim()
	s.version++
}

// Append adds entry to the end of the sequence.
func (s *Store) Append(entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	s.trim()
	s.version++
}

// Entries returns a copy of the sequence in arrival order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.entries)
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Last returns the newest entry.
func (s *Store) Last() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// Version increases on every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// trim evicts the oldest entries beyond the limit. Caller holds mu.
func (s *Store) trim() {
	if s.limit <= 0 {
		return
	}
	if overflow := len(s.entries) - s.limit; overflow > 0 {
		s.entries = append([]Entry(nil), s.entries[overflow:]...)
	}
}

func cloneEntries(entries []Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}
	dup := make([]Entry, len(entries))
	copy(dup, entries)
	return dup
}
