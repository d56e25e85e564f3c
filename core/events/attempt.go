package events

import (
	"time"

	"github.com/kilianp07/clipcast/core/model"
)

// AttemptEvent is published for each publish attempt that reaches a terminal
// state.
type AttemptEvent struct {
	ContentHash string
	Platform    string
	Seq         int
	Status      model.AttemptStatus
	Detail      string
	RemoteRef   string
	Latency     time.Duration
}

// CycleEvent summarizes one completed dispatch cycle.
type CycleEvent struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
	Reaped    int
	Started   time.Time
	Duration  time.Duration
}

// RetryRequestedEvent is published when an operator resets a pair's retry
// eligibility.
type RetryRequestedEvent struct {
	ContentHash string
	Platform    string
	Note        string
}
