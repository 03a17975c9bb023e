package cache

import (
	"sync"
	"time"
)

// State is where an entry sits in its lifetime at a given instant.
type State int

const (
	// StateMissing covers both "never stored" and "past the stale window".
	StateMissing State = iota
	StateFresh
	StateStale
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return "missing"
	}
}

// Entry is one stored value with the timestamps that bound its lifetime.
type Entry struct {
	Value     any
	FetchedAt time.Time
	// ExpiresAt ends the fresh period.
	ExpiresAt time.Time
	// StaleUntil ends the period in which the value may still be served as
	// a fallback. Always after ExpiresAt.
	StaleUntil time.Time
}

// StateAt classifies the entry at now.
func (e Entry) StateAt(now time.Time) State {
	switch {
	case now.Before(e.ExpiresAt):
		return StateFresh
	case now.Before(e.StaleUntil):
		return StateStale
	default:
		return StateMissing
	}
}

// Store is a map-backed entry store. It is safe for concurrent use.
// There is no capacity bound and no janitor: entries past their stale window
// are dropped by the lookup that finds them.
type Store struct {
	mu    sync.RWMutex
	items map[string]Entry
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{items: make(map[string]Entry)}
}

// Lookup returns the entry for key and its state at now. An entry past its
// stale window is deleted and reported as StateMissing.
func (s *Store) Lookup(key string, now time.Time) (Entry, State) {
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, StateMissing
	}

	state := e.StateAt(now)
	if state != StateMissing {
		return e, state
	}

	s.mu.Lock()
	// Only drop what we looked at; a concurrent Put may have replaced it.
	if cur, ok := s.items[key]; ok && cur.FetchedAt.Equal(e.FetchedAt) {
		delete(s.items, key)
	}
	s.mu.Unlock()
	return Entry{}, StateMissing
}

// Put stores e under key, replacing any previous entry. Last write wins.
func (s *Store) Put(key string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = e
}

// Expire ends the fresh period of the given keys at now. Their values stay
// available as stale fallbacks until their stale window closes.
func (s *Store) Expire(now time.Time, keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		e, ok := s.items[k]
		if !ok || !now.Before(e.ExpiresAt) {
			continue
		}
		e.ExpiresAt = now
		s.items[k] = e
	}
}

// Len returns the number of stored entries, including stale ones that no
// lookup has evicted yet.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
