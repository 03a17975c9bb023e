package cache

import "time"

// Outcome says where a value returned by Fetch came from.
type Outcome int

const (
	// OutcomeFresh is a cache hit inside the fresh TTL.
	OutcomeFresh Outcome = iota
	// OutcomeRevalidated is a value the operation just produced.
	OutcomeRevalidated
	// OutcomeStale is an old value served because the operation failed or
	// the rate limit budget was too low to spend.
	OutcomeStale
	// OutcomeFailed means there was nothing to serve; the error is returned.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFresh:
		return "fresh"
	case OutcomeRevalidated:
		return "revalidated"
	case OutcomeStale:
		return "stale"
	default:
		return "failed"
	}
}

// Budget is the rate limit state the cache reasons about.
type Budget struct {
	Remaining int
	ResetAt   time.Time
}

// action is what fetch does before touching the operation.
type action int

const (
	actionServeFresh action = iota
	actionServeStale
	actionFetch
)

// decide picks the action for an entry in state given the current budget.
// A stale entry is served without calling out when fewer than lowWater calls
// remain and the budget has not reset yet.
func decide(state State, budget Budget, now time.Time, lowWater int) action {
	switch state {
	case StateFresh:
		return actionServeFresh
	case StateStale:
		if budget.Remaining < lowWater && budget.ResetAt.After(now) {
			return actionServeStale
		}
	}
	return actionFetch
}

// resolveFailure decides what a failed operation yields. prev and prevState
// describe the entry as it stands after the failure: anything still inside
// its stale window is served, otherwise the error goes back unchanged.
func resolveFailure(prev Entry, prevState State, err error) (any, Outcome, error) {
	if prevState == StateMissing {
		return nil, OutcomeFailed, err
	}
	return prev.Value, OutcomeStale, nil
}
