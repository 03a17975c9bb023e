package github

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"ops-dashboard-api/internal/metrics"
)

// initialRemaining is GitHub's hourly budget for an authenticated token. The
// first response replaces it.
const initialRemaining = 5000

// LastError is the most recent failure seen by the client.
type LastError struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// RateLimitState is a point-in-time copy of the tracked budget.
type RateLimitState struct {
	Remaining int
	// ResetAt is zero until a response carried X-RateLimit-Reset.
	ResetAt   time.Time
	LastError *LastError
}

// rateLimitTracker records rate limit headers from every response, whatever
// its status. 403 and 429 responses carry authoritative values too.
type rateLimitTracker struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	lastError *LastError
	now       func() time.Time
}

func newRateLimitTracker(now func() time.Time) *rateLimitTracker {
	return &rateLimitTracker{remaining: initialRemaining, now: now}
}

// update reads X-RateLimit-Remaining and X-RateLimit-Reset. Each header is
// applied on its own when present and parseable.
func (t *rateLimitTracker) update(header http.Header) {
	remainingStr := header.Get("X-RateLimit-Remaining")
	resetStr := header.Get("X-RateLimit-Reset")

	t.mu.Lock()
	defer t.mu.Unlock()

	if remainingStr != "" {
		if remaining, err := strconv.Atoi(remainingStr); err == nil && remaining >= 0 {
			t.remaining = remaining
			metrics.RateLimitRemaining(remaining)
		}
	}
	if resetStr != "" {
		if resetUnix, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			t.reset = time.Unix(resetUnix, 0)
		}
	}
}

func (t *rateLimitTracker) fail(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastError = &LastError{Message: message, At: t.now()}
}

func (t *rateLimitTracker) snapshot() RateLimitState {
	t.mu.Lock()
	defer t.mu.Unlock()
	state := RateLimitState{Remaining: t.remaining, ResetAt: t.reset}
	if t.lastError != nil {
		le := *t.lastError
		state.LastError = &le
	}
	return state
}
