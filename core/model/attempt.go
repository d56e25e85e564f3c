package model

import "time"

// AttemptStatus is the lifecycle state of a delivery attempt.
type AttemptStatus string

const (
	// StatusPending marks an operator-requested attempt that has not been
	// claimed yet. A pending pair is immediately due regardless of backoff.
	StatusPending AttemptStatus = "pending"
	// StatusInFlight marks a claimed attempt whose adapter call is running.
	StatusInFlight  AttemptStatus = "in_flight"
	StatusSucceeded AttemptStatus = "succeeded"
	StatusFailed    AttemptStatus = "failed"
	// StatusAbandoned is terminal: the retry budget for the pair is
	// exhausted. Never retried automatically.
	StatusAbandoned AttemptStatus = "abandoned"
)

// Terminal reports whether no further transition is allowed for this status.
func (s AttemptStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusAbandoned:
		return true
	}
	return false
}

// Valid reports whether s is a known status value.
func (s AttemptStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInFlight, StatusSucceeded, StatusFailed, StatusAbandoned:
		return true
	}
	return false
}

// DeliveryAttempt records one publish attempt for a (content, platform) pair.
// Attempts are append-only: a terminal attempt is never mutated, a retry
// creates a new row with the next sequence number.
type DeliveryAttempt struct {
	ID          string        `json:"id"`
	ContentHash string        `json:"content_hash"`
	Platform    string        `json:"platform"`
	Seq         int           `json:"seq"`
	Status      AttemptStatus `json:"status"`

	// Detail holds free-form diagnostic text for failed or abandoned
	// attempts, or an operator note on pending markers.
	Detail    string `json:"detail,omitempty"`
	RemoteRef string `json:"remote_ref,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Pair identifies a (content, platform) combination.
type Pair struct {
	ContentHash string `json:"content_hash"`
	Platform    string `json:"platform"`
}

func (p Pair) String() string { return p.ContentHash + "/" + p.Platform }
