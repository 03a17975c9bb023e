package dashboard

import (
	"encoding/json"
	"time"

	"ops-dashboard-api/internal/github"
)

// Status is the diagnostic view of the cache and the GitHub budget.
type Status struct {
	Entries            int
	RateLimitRemaining int
	RateLimitReset     time.Time
	LastError          *github.LastError
}

// MarshalJSON renders an unknown reset time as null and timestamps as RFC 3339.
func (s Status) MarshalJSON() ([]byte, error) {
	type lastError struct {
		Message string `json:"message"`
		At      string `json:"at"`
	}
	out := struct {
		Entries            int        `json:"entries"`
		RateLimitRemaining int        `json:"rateLimitRemaining"`
		RateLimitReset     *string    `json:"rateLimitReset"`
		LastError          *lastError `json:"lastError"`
	}{
		Entries:            s.Entries,
		RateLimitRemaining: s.RateLimitRemaining,
	}
	if !s.RateLimitReset.IsZero() {
		reset := s.RateLimitReset.UTC().Format(time.RFC3339)
		out.RateLimitReset = &reset
	}
	if s.LastError != nil {
		out.LastError = &lastError{
			Message: s.LastError.Message,
			At:      s.LastError.At.UTC().Format(time.RFC3339),
		}
	}
	return json.Marshal(out)
}

// Status reports cache occupancy and the latest rate-limit telemetry.
func (s *Service) Status() Status {
	rl := s.gh.RateLimit()
	return Status{
		Entries:            s.cache.Stats().Entries,
		RateLimitRemaining: rl.Remaining,
		RateLimitReset:     rl.ResetAt,
		LastError:          rl.LastError,
	}
}
