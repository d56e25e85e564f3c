package store

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/clipcast/core/model"
)

// ErrNotFound is returned when a content item or attempt does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrClaimConflict is returned by Claim when another in-flight attempt
// already exists for the pair. It marks a normal skip, not a failure.
var ErrClaimConflict = errors.New("store: attempt already in flight")

// ErrNotInFlight is returned by Resolve when the attempt is no longer in
// flight, typically because a liveness sweep already reaped it.
var ErrNotInFlight = errors.New("store: attempt not in flight")

// ContentStore holds content records. Creation and metadata updates belong to
// the ingestion side; the dispatch core only reads scheduling fields.
type ContentStore interface {
	// Upsert inserts the item or, when the hash already exists, updates the
	// existing record's metadata and schedule. It never creates a second
	// record for a known hash.
	Upsert(ctx context.Context, item model.ContentItem) error
	Get(ctx context.Context, hash string) (model.ContentItem, error)
	List(ctx context.Context) ([]model.ContentItem, error)
	// ListDue returns items with scheduled_at <= now, ordered by ascending
	// scheduled_at with the content hash as tiebreak.
	ListDue(ctx context.Context, now time.Time) ([]model.ContentItem, error)
}

// AttemptQuery filters ledger reads for the operator surface.
type AttemptQuery struct {
	ContentHash string
	Platform    string
	Status      model.AttemptStatus
	Start       time.Time
	End         time.Time
}

// Ledger is the append-oriented record of delivery attempts. It is the single
// piece of shared mutable state and must provide atomic claim-or-skip
// semantics.
type Ledger interface {
	// Claim atomically creates a new in-flight attempt for the pair. It
	// returns ErrClaimConflict when another in-flight attempt exists.
	Claim(ctx context.Context, hash, platform string, now time.Time) (model.DeliveryAttempt, error)
	// Resolve moves the in-flight attempt to a terminal status exactly once.
	// Resolving an attempt that is no longer in flight returns ErrNotInFlight.
	Resolve(ctx context.Context, attemptID string, status model.AttemptStatus, detail, remoteRef string, completedAt time.Time) error
	// ReapStale marks in-flight attempts started before cutoff as failed
	// and returns how many were reaped. A reaped pair stays eligible for a
	// fresh attempt under the retry budget.
	ReapStale(ctx context.Context, cutoff time.Time, detail string) (int, error)
	// History returns the ordered attempt history for a pair.
	History(ctx context.Context, hash, platform string) ([]model.DeliveryAttempt, error)
	// Latest returns the most recent attempt for a pair, or ErrNotFound.
	Latest(ctx context.Context, hash, platform string) (model.DeliveryAttempt, error)
	// Attempts returns attempts matching the query, oldest first.
	Attempts(ctx context.Context, q AttemptQuery) ([]model.DeliveryAttempt, error)
	// RequestRetry appends a pending marker that makes the pair immediately
	// due regardless of backoff timing.
	RequestRetry(ctx context.Context, hash, platform string, now time.Time, note string) (model.DeliveryAttempt, error)
	// MarkAbandoned appends the terminal abandoned row for a pair whose
	// retry budget is exhausted.
	MarkAbandoned(ctx context.Context, hash, platform string, now time.Time, detail string) error
	// SuccessCounts returns the number of succeeded attempts per content
	// hash, for the operator summary.
	SuccessCounts(ctx context.Context) (map[string]int, error)
	Close() error
}
