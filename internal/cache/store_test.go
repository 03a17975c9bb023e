package cache

import (
	"sync"
	"testing"
	"time"
)

func testEntry(at time.Time, fresh, stale time.Duration, v any) Entry {
	return Entry{Value: v, FetchedAt: at, ExpiresAt: at.Add(fresh), StaleUntil: at.Add(stale)}
}

func TestStore_LookupStates(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore()
	s.Put("k", testEntry(base, time.Minute, 5*time.Minute, "v"))

	if e, st := s.Lookup("k", base.Add(30*time.Second)); st != StateFresh || e.Value != "v" {
		t.Fatalf("expected fresh hit, got state=%v value=%v", st, e.Value)
	}
	if _, st := s.Lookup("k", base.Add(time.Minute)); st != StateStale {
		t.Fatalf("expected stale exactly at ExpiresAt, got %v", st)
	}
	if _, st := s.Lookup("k", base.Add(4*time.Minute)); st != StateStale {
		t.Fatalf("expected stale inside window, got %v", st)
	}
	if s.Len() != 1 {
		t.Fatalf("stale entry must stay stored, Len=%d", s.Len())
	}
	if _, st := s.Lookup("k", base.Add(5*time.Minute)); st != StateMissing {
		t.Fatalf("expected missing past stale window, got %v", st)
	}
	if s.Len() != 0 {
		t.Fatalf("expected lazy eviction, Len=%d", s.Len())
	}
}

func TestStore_LookupUnknownKey(t *testing.T) {
	s := NewStore()
	if _, st := s.Lookup("nope", time.Now()); st != StateMissing {
		t.Fatalf("expected missing, got %v", st)
	}
}

func TestStore_Expire(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore()
	s.Put("a", testEntry(base, time.Minute, 5*time.Minute, 1))
	s.Put("b", testEntry(base, time.Minute, 5*time.Minute, 2))

	s.Expire(base.Add(10*time.Second), "a", "missing")

	if _, st := s.Lookup("a", base.Add(10*time.Second)); st != StateStale {
		t.Fatalf("expected expired key to be stale, got %v", st)
	}
	if _, st := s.Lookup("b", base.Add(10*time.Second)); st != StateFresh {
		t.Fatalf("expected untouched key to stay fresh, got %v", st)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	keys := 50
	rounds := 200
	now := time.Now()
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < keys; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := string(rune('a' + i%26))
			for r := 0; r < rounds; r++ {
				s.Put(key, testEntry(now, time.Minute, 5*time.Minute, r))
				_, _ = s.Lookup(key, now)
			}
		}()
	}
	wg.Wait()

	if s.Len() != 26 {
		t.Fatalf("expected 26 keys, got %d", s.Len())
	}
}
