package cache

import (
	"context"
	"fmt"
	"time"

	"ops-dashboard-api/internal/metrics"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL          = time.Minute
	DefaultStaleFactor  = 5
	DefaultLowWaterMark = 10
	DefaultFetchTimeout = 10 * time.Second
)

// RateLimiter reports the upstream call budget. github.Client implements it.
type RateLimiter interface {
	Budget() (remaining int, resetAt time.Time)
}

// Operation produces a fresh value for a key.
type Operation[T any] func(ctx context.Context) (T, error)

// Config tunes an SWR cache. Zero values take the package defaults.
type Config struct {
	// StaleFactor sets each key's stale window as a multiple of its fresh
	// TTL. Values <= 1 fall back to DefaultStaleFactor.
	StaleFactor float64
	// StaleWindow is a fixed stale window. It is used only for keys whose
	// fresh TTL is shorter than it.
	StaleWindow time.Duration
	// LowWaterMark is the remaining-call count below which stale entries are
	// served without revalidating, until the budget resets.
	LowWaterMark int
	// FetchTimeout bounds each operation.
	FetchTimeout time.Duration
	Now          func() time.Time
	Logger       *logrus.Logger
}

// Stats is the diagnostic view of the cache.
type Stats struct {
	Entries int `json:"entries"`
}

// SWR memoizes operations by key, serving stale values when the operation
// fails or the rate limit budget is nearly spent. Concurrent fetches of the
// same key share one in-flight operation.
type SWR struct {
	store        *Store
	limiter      RateLimiter
	group        singleflight.Group
	staleFactor  float64
	staleWindow  time.Duration
	lowWaterMark int
	fetchTimeout time.Duration
	now          func() time.Time
	logger       *logrus.Logger
}

// New builds an SWR cache. limiter may be nil, in which case the budget is
// treated as unlimited.
func New(cfg Config, limiter RateLimiter) *SWR {
	s := &SWR{
		store:        NewStore(),
		limiter:      limiter,
		staleFactor:  cfg.StaleFactor,
		staleWindow:  cfg.StaleWindow,
		lowWaterMark: cfg.LowWaterMark,
		fetchTimeout: cfg.FetchTimeout,
		now:          cfg.Now,
		logger:       cfg.Logger,
	}
	if s.staleFactor <= 1 {
		s.staleFactor = DefaultStaleFactor
	}
	if s.lowWaterMark <= 0 {
		s.lowWaterMark = DefaultLowWaterMark
	}
	if s.fetchTimeout <= 0 {
		s.fetchTimeout = DefaultFetchTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	return s
}

// Fetch returns the value for key, running op only when the cached entry is
// not fresh and the budget allows it. ttl <= 0 means DefaultTTL.
//
// On failure a value still inside its stale window is returned with
// OutcomeStale and a nil error. Without one, op's error is returned as is.
func Fetch[T any](ctx context.Context, s *SWR, key string, ttl time.Duration, op Operation[T]) (T, Outcome, error) {
	var zero T
	v, outcome, err := s.fetch(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return op(ctx)
	})
	if err != nil {
		return zero, outcome, err
	}
	if v == nil {
		return zero, outcome, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, OutcomeFailed, fmt.Errorf("cache: key %q holds %T, not %T", key, v, zero)
	}
	return typed, outcome, nil
}

func (s *SWR) fetch(ctx context.Context, key string, ttl time.Duration, op Operation[any]) (any, Outcome, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := s.now()
	entry, state := s.store.Lookup(key, now)
	budget := s.budget()

	switch decide(state, budget, now, s.lowWaterMark) {
	case actionServeFresh:
		metrics.CacheResult(OutcomeFresh.String())
		return entry.Value, OutcomeFresh, nil
	case actionServeStale:
		s.logger.WithFields(logrus.Fields{
			"key":       key,
			"remaining": budget.Remaining,
			"reset_at":  budget.ResetAt,
		}).Warn("cache: rate limit low, serving stale")
		metrics.CacheResult("stale_budget")
		return entry.Value, OutcomeStale, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		// The flight outlives any single caller's cancellation; it is
		// bounded by fetchTimeout instead.
		opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()

		v, err := op(opCtx)
		if err != nil {
			return nil, err
		}
		s.store.Put(key, s.newEntry(v, ttl))
		return v, nil
	})
	if err == nil {
		metrics.CacheResult(OutcomeRevalidated.String())
		return v, OutcomeRevalidated, nil
	}

	prev, prevState := s.store.Lookup(key, s.now())
	value, outcome, resolved := resolveFailure(prev, prevState, err)
	if outcome == OutcomeStale {
		s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("cache: fetch failed, serving stale")
		metrics.CacheResult("stale_error")
		return value, outcome, nil
	}
	metrics.CacheResult(outcome.String())
	return nil, outcome, resolved
}

func (s *SWR) newEntry(v any, ttl time.Duration) Entry {
	now := s.now()
	return Entry{
		Value:      v,
		FetchedAt:  now,
		ExpiresAt:  now.Add(ttl),
		StaleUntil: now.Add(s.staleTTL(ttl)),
	}
}

// staleTTL is the total servable lifetime of a key with the given fresh TTL.
// It is always longer than ttl.
func (s *SWR) staleTTL(ttl time.Duration) time.Duration {
	if s.staleWindow > ttl {
		return s.staleWindow
	}
	return time.Duration(float64(ttl) * s.staleFactor)
}

func (s *SWR) budget() Budget {
	if s.limiter == nil {
		return Budget{Remaining: s.lowWaterMark}
	}
	remaining, resetAt := s.limiter.Budget()
	return Budget{Remaining: remaining, ResetAt: resetAt}
}

// Invalidate marks the given keys as no longer fresh so the next Fetch
// revalidates. The old values remain stale fallbacks.
func (s *SWR) Invalidate(keys ...string) {
	s.store.Expire(s.now(), keys...)
}

// Len returns the number of stored entries.
func (s *SWR) Len() int {
	return s.store.Len()
}

// Stats returns the diagnostic counters.
func (s *SWR) Stats() Stats {
	return Stats{Entries: s.store.Len()}
}
