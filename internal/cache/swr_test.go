package cache

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeLimiter struct {
	remaining int
	resetAt   time.Time
}

func (l *fakeLimiter) Budget() (int, time.Time) { return l.remaining, l.resetAt }

type payload struct{ V int }

func counting(calls *int32, v payload, err error) Operation[payload] {
	return func(context.Context) (payload, error) {
		atomic.AddInt32(calls, 1)
		return v, err
	}
}

func newTestSWR(clk *fakeClock, limiter RateLimiter) *SWR {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(Config{Now: clk.Now, Logger: logger}, limiter)
}

func TestFetch_FreshHitDoesNotCallOperation(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestSWR(clk, nil)
	var calls int32

	v, outcome, err := Fetch(context.Background(), c, "x", time.Minute, counting(&calls, payload{1}, nil))
	require.NoError(t, err)
	require.Equal(t, OutcomeRevalidated, outcome)
	require.Equal(t, payload{1}, v)

	clk.Advance(30 * time.Second)
	v, outcome, err = Fetch(context.Background(), c, "x", time.Minute, counting(&calls, payload{2}, nil))
	require.NoError(t, err)
	require.Equal(t, OutcomeFresh, outcome)
	require.Equal(t, payload{1}, v)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// TTL 60s: fetched at t=0, served from cache at t=30s, revalidation at t=61s
// fails and the t=0 value comes back.
func TestFetch_StaleServedWhenRevalidationFails(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestSWR(clk, nil)
	var callsA, callsB int32

	_, _, err := Fetch(context.Background(), c, "x", 60*time.Second, counting(&callsA, payload{1}, nil))
	require.NoError(t, err)

	clk.Advance(30 * time.Second)
	v, _, err := Fetch(context.Background(), c, "x", 60*time.Second, counting(&callsA, payload{9}, nil))
	require.NoError(t, err)
	require.Equal(t, payload{1}, v)
	require.Equal(t, int32(1), atomic.LoadInt32(&callsA))

	clk.Advance(31 * time.Second)
	v, outcome, err := Fetch(context.Background(), c, "x", 60*time.Second, counting(&callsB, payload{}, errors.New("upstream down")))
	require.NoError(t, err)
	require.Equal(t, OutcomeStale, outcome)
	require.Equal(t, payload{1}, v)
	require.Equal(t, int32(1), atomic.LoadInt32(&callsB))
}

func TestFetch_StaleServeLogsOperationError(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	logger, hook := logtest.NewNullLogger()
	c := New(Config{Now: clk.Now, Logger: logger}, nil)
	var calls int32

	_, _, err := Fetch(context.Background(), c, "k", time.Minute, counting(&calls, payload{1}, nil))
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	upstream := errors.New("upstream down")
	v, outcome, err := Fetch(context.Background(), c, "k", time.Minute, counting(&calls, payload{}, upstream))
	require.NoError(t, err)
	require.Equal(t, OutcomeStale, outcome)
	require.Equal(t, payload{1}, v)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, logrus.WarnLevel, entry.Level)
	require.Equal(t, "k", entry.Data["key"])
	require.Equal(t, upstream, entry.Data[logrus.ErrorKey])
}

func TestFetch_HardMissPropagatesErrorAndStoresNothing(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestSWR(clk, nil)
	boom := errors.New("boom")
	var calls int32

	_, outcome, err := Fetch(context.Background(), c, "x", time.Minute, counting(&calls, payload{}, boom))
	require.ErrorIs(t, err, boom)
	require.Same(t, boom, err)
	require.Equal(t, OutcomeFailed, outcome)
	require.Equal(t, 0, c.Len())
}

func TestFetch_EntryPastStaleWindowIsAbsent(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestSWR(clk, nil)
	var calls int32

	_, _, err := Fetch(context.Background(), c, "x", time.Minute, counting(&calls, payload{1}, nil))
	require.NoError(t, err)

	// Default stale window is 5x the fresh TTL.
	clk.Advance(5*time.Minute + time.Second)
	boom := errors.New("boom")
	_, outcome, err := Fetch(context.Background(), c, "x", time.Minute, counting(&calls, payload{}, boom))
	require.ErrorIs(t, err, boom)
	require.Equal(t, OutcomeFailed, outcome)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Equal(t, 0, c.Len())
}

func TestFetch_LowBudgetServesStaleWithoutCalling(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	limiter := &fakeLimiter{remaining: 5000}
	c := newTestSWR(clk, limiter)
	var calls int32

	_, _, err := Fetch(context.Background(), c, "x", time.Minute, counting(&calls, payload{1}, nil))
	require.NoError(t, err)

	limiter.remaining = 3
	limiter.resetAt = clk.Now().Add(30 * time.Minute)
	clk.Advance(2 * time.Minute)

	var second int32
	v, outcome, err := Fetch(context.Background(), c, "x", time.Minute, counting(&second, payload{2}, nil))
	require.NoError(t, err)
	require.Equal(t, OutcomeStale, outcome)
	require.Equal(t, payload{1}, v)
	require.Equal(t, int32(0), atomic.LoadInt32(&second))
}

func TestFetch_LowBudgetStillFetchesOnMiss(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	limiter := &fakeLimiter{remaining: 1, resetAt: time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)}
	c := newTestSWR(clk, limiter)
	var calls int32

	v, outcome, err := Fetch(context.Background(), c, "x", time.Minute, counting(&calls, payload{7}, nil))
	require.NoError(t, err)
	require.Equal(t, OutcomeRevalidated, outcome)
	require.Equal(t, payload{7}, v)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch_LowBudgetAfterResetRevalidates(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	limiter := &fakeLimiter{remaining: 5000}
	c := newTestSWR(clk, limiter)
	var calls int32

	_, _, err := Fetch(context.Background(), c, "x", time.Minute, counting(&calls, payload{1}, nil))
	require.NoError(t, err)

	limiter.remaining = 2
	limiter.resetAt = clk.Now().Add(time.Minute)
	clk.Advance(2 * time.Minute)

	v, outcome, err := Fetch(context.Background(), c, "x", time.Minute, counting(&calls, payload{2}, nil))
	require.NoError(t, err)
	require.Equal(t, OutcomeRevalidated, outcome)
	require.Equal(t, payload{2}, v)
}

func TestFetch_StaleWindowConfiguration(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := New(Config{StaleWindow: 5 * time.Minute, StaleFactor: 3, Now: clk.Now}, nil)

	require.Equal(t, 5*time.Minute, c.staleTTL(time.Minute))
	// A fixed window no longer than the fresh TTL would leave no stale
	// period, so the factor applies.
	require.Equal(t, 15*time.Minute, c.staleTTL(5*time.Minute))

	d := New(Config{StaleFactor: 0.5}, nil)
	require.Equal(t, 5*time.Minute, d.staleTTL(time.Minute))
}

func TestFetch_ConcurrentCallersShareOneOperation(t *testing.T) {
	c := newTestSWR(&fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}, nil)
	var calls int32
	release := make(chan struct{})
	op := func(context.Context) (payload, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return payload{42}, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]payload, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := Fetch(context.Background(), c, "shared", time.Minute, op)
			if err == nil {
				results[i] = v
			}
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		require.Equal(t, payload{42}, r)
	}
}

func TestFetch_OperationIsBoundedByTimeout(t *testing.T) {
	c := New(Config{FetchTimeout: 20 * time.Millisecond}, nil)
	op := func(ctx context.Context) (payload, error) {
		<-ctx.Done()
		return payload{}, ctx.Err()
	}

	_, outcome, err := Fetch(context.Background(), c, "slow", time.Minute, op)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, OutcomeFailed, outcome)
}

func TestFetch_CallerCancellationDoesNotAbortFlight(t *testing.T) {
	c := newTestSWR(&fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, _, err := Fetch(ctx, c, "x", time.Minute, func(ctx context.Context) (payload, error) {
		if ctx.Err() != nil {
			return payload{}, ctx.Err()
		}
		return payload{3}, nil
	})
	require.NoError(t, err)
	require.Equal(t, payload{3}, v)
}

func TestFetch_TypeMismatchOnSharedKey(t *testing.T) {
	c := newTestSWR(&fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}, nil)
	_, _, err := Fetch(context.Background(), c, "x", time.Minute, func(context.Context) (payload, error) {
		return payload{1}, nil
	})
	require.NoError(t, err)

	_, outcome, err := Fetch(context.Background(), c, "x", time.Minute, func(context.Context) (string, error) {
		return "s", nil
	})
	require.Error(t, err)
	require.Equal(t, OutcomeFailed, outcome)
}

func TestInvalidate_ForcesRevalidationButKeepsFallback(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestSWR(clk, nil)
	var calls int32

	_, _, err := Fetch(context.Background(), c, "x", time.Minute, counting(&calls, payload{1}, nil))
	require.NoError(t, err)

	c.Invalidate("x")
	v, outcome, err := Fetch(context.Background(), c, "x", time.Minute, counting(&calls, payload{}, errors.New("down")))
	require.NoError(t, err)
	require.Equal(t, OutcomeStale, outcome)
	require.Equal(t, payload{1}, v)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Equal(t, Stats{Entries: 1}, c.Stats())
}
