package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/clipcast/core/model"
)

func failed(at time.Time) model.DeliveryAttempt {
	done := at
	return model.DeliveryAttempt{Status: model.StatusFailed, StartedAt: at, CompletedAt: &done}
}

func TestExponentialGrowth(t *testing.T) {
	p := ExponentialPolicy{Base: 5 * time.Minute, Cap: time.Hour, MaxAttempts: 5}
	t0 := time.Now()
	d := p.Decide([]model.DeliveryAttempt{failed(t0), failed(t0.Add(5 * time.Minute))})
	assert.True(t, d.Retry)
	assert.Equal(t, 10*time.Minute, d.After)
}

func TestCap(t *testing.T) {
	p := ExponentialPolicy{Base: 5 * time.Minute, Cap: time.Hour, MaxAttempts: 10}
	t0 := time.Now()
	hist := []model.DeliveryAttempt{
		failed(t0), failed(t0), failed(t0), failed(t0), failed(t0), failed(t0),
	}
	d := p.Decide(hist)
	assert.True(t, d.Retry)
	assert.Equal(t, time.Hour, d.After)
}

func TestGiveUpAfterMaxAttempts(t *testing.T) {
	p := ExponentialPolicy{Base: time.Minute, Cap: time.Hour, MaxAttempts: 3}
	t0 := time.Now()
	d := p.Decide([]model.DeliveryAttempt{failed(t0), failed(t0), failed(t0)})
	assert.False(t, d.Retry)
}

func TestAbandonedIsTerminal(t *testing.T) {
	p := DefaultPolicy()
	d := p.Decide([]model.DeliveryAttempt{
		failed(time.Now()),
		{Status: model.StatusAbandoned},
	})
	assert.False(t, d.Retry)
}

func TestPendingResetsBudget(t *testing.T) {
	p := ExponentialPolicy{Base: time.Minute, Cap: time.Hour, MaxAttempts: 2}
	t0 := time.Now()
	hist := []model.DeliveryAttempt{
		failed(t0), failed(t0),
		{Status: model.StatusPending, StartedAt: t0},
	}
	d := p.Decide(hist)
	assert.True(t, d.Retry)
	assert.Equal(t, time.Duration(0), d.After)
}

func TestPendingResetsAbandonedPair(t *testing.T) {
	p := ExponentialPolicy{Base: time.Minute, Cap: time.Hour, MaxAttempts: 3}
	t0 := time.Now()
	hist := []model.DeliveryAttempt{
		failed(t0), failed(t0), failed(t0),
		{Status: model.StatusAbandoned, StartedAt: t0},
		{Status: model.StatusPending, StartedAt: t0},
		failed(t0),
	}
	// One failure counted since the operator reset: the budget restarts
	// instead of re-abandoning on the next failure.
	d := p.Decide(hist)
	assert.True(t, d.Retry)
	assert.Equal(t, time.Minute, d.After)
}

func TestEmptyHistoryRetriesImmediately(t *testing.T) {
	d := DefaultPolicy().Decide(nil)
	assert.True(t, d.Retry)
	assert.Equal(t, time.Duration(0), d.After)
}
