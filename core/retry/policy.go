// Package retry decides whether a failed (content, platform) pair should be
// attempted again and with what minimum delay.
package retry

import (
	"time"

	"github.com/kilianp07/clipcast/core/model"
)

// Decision is the outcome of a policy evaluation. A zero Decision means give
// up; Retry decisions carry the minimum delay after the last failure.
type Decision struct {
	Retry bool
	After time.Duration
}

// GiveUp is the terminal decision.
var GiveUp = Decision{}

// Policy decides, from the ordered attempt history of a pair, whether a new
// attempt should be scheduled. Implementations must be pure: no clock reads,
// no side effects.
type Policy interface {
	Decide(history []model.DeliveryAttempt) Decision
}

// ExponentialPolicy implements capped exponential backoff with a maximum
// attempt count.
type ExponentialPolicy struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int
}

// DefaultPolicy mirrors the documented defaults: base 5 minutes, cap one day,
// five attempts.
func DefaultPolicy() ExponentialPolicy {
	return ExponentialPolicy{Base: 5 * time.Minute, Cap: 24 * time.Hour, MaxAttempts: 5}
}

// Decide counts completed failures since the last operator reset. n failures
// yield a delay of Base*2^(n-1) capped at Cap; reaching MaxAttempts yields
// GiveUp. An abandoned attempt is terminal unless a later pending marker
// restarts the budget.
func (p ExponentialPolicy) Decide(history []model.DeliveryAttempt) Decision {
	failures := 0
	abandoned := false
	for _, a := range history {
		switch a.Status {
		case model.StatusAbandoned:
			abandoned = true
		case model.StatusFailed:
			failures++
		case model.StatusPending:
			// Operator retry-now marker: the budget restarts from here,
			// even on a previously abandoned pair.
			failures = 0
			abandoned = false
		}
	}
	if abandoned {
		return GiveUp
	}
	if failures == 0 {
		return Decision{Retry: true}
	}
	if p.MaxAttempts > 0 && failures >= p.MaxAttempts {
		return GiveUp
	}
	delay := p.Base
	for i := 1; i < failures; i++ {
		delay *= 2
		if p.Cap > 0 && delay >= p.Cap {
			delay = p.Cap
			break
		}
	}
	if p.Cap > 0 && delay > p.Cap {
		delay = p.Cap
	}
	return Decision{Retry: true, After: delay}
}
