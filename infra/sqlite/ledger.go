package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/clipcast/core/model"
	"github.com/kilianp07/clipcast/core/store"
)

// Claim atomically creates a new in-flight attempt for the pair. The insert
// computes the next sequence number and relies on the partial unique index
// to reject a claim while another attempt is in flight.
func (s *Store) Claim(ctx context.Context, hash, platform string, now time.Time) (model.DeliveryAttempt, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO delivery_attempts (id, content_hash, platform, seq, status, started_at)
         VALUES (?, ?, ?,
             (SELECT COALESCE(MAX(seq), 0) + 1 FROM delivery_attempts WHERE content_hash = ? AND platform = ?),
             ?, ?)`,
		id, hash, platform, hash, platform, string(model.StatusInFlight), now.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return model.DeliveryAttempt{}, store.ErrClaimConflict
		}
		return model.DeliveryAttempt{}, err
	}
	return s.attemptByID(ctx, id)
}

// Resolve moves an in-flight attempt to a terminal status. The status guard
// in the UPDATE makes resolution exactly-once: a second resolve, or a resolve
// racing a liveness reap, affects zero rows and returns ErrNotInFlight.
func (s *Store) Resolve(ctx context.Context, attemptID string, status model.AttemptStatus, detail, remoteRef string, completedAt time.Time) error {
	if !status.Terminal() {
		return fmt.Errorf("sqlite: resolve to non-terminal status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE delivery_attempts
         SET status = ?, detail = ?, remote_ref = ?, completed_at = ?
         WHERE id = ? AND status = ?`,
		string(status), detail, remoteRef, completedAt.Unix(), attemptID, string(model.StatusInFlight))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotInFlight
	}
	return nil
}

// ReapStale marks in-flight attempts started before cutoff as failed. The
// outcome of such an attempt is unknown, so the pair stays eligible for a
// fresh attempt under the normal retry budget; abandoned is reserved for
// budget exhaustion.
func (s *Store) ReapStale(ctx context.Context, cutoff time.Time, detail string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE delivery_attempts
         SET status = ?, detail = ?, completed_at = ?
         WHERE status = ? AND started_at < ?`,
		string(model.StatusFailed), detail, time.Now().Unix(),
		string(model.StatusInFlight), cutoff.Unix())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// History returns all attempts for a pair ordered by sequence.
func (s *Store) History(ctx context.Context, hash, platform string) ([]model.DeliveryAttempt, error) {
	return s.listAttempts(ctx,
		selectAttempt+` WHERE content_hash = ? AND platform = ? ORDER BY seq`, hash, platform)
}

// Latest returns the most recent attempt for a pair.
func (s *Store) Latest(ctx context.Context, hash, platform string) (model.DeliveryAttempt, error) {
	row := s.db.QueryRowContext(ctx,
		selectAttempt+` WHERE content_hash = ? AND platform = ? ORDER BY seq DESC LIMIT 1`, hash, platform)
	a, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return model.DeliveryAttempt{}, store.ErrNotFound
	}
	return a, err
}

// Attempts returns attempts matching the query, oldest first.
func (s *Store) Attempts(ctx context.Context, q store.AttemptQuery) ([]model.DeliveryAttempt, error) {
	query := selectAttempt + ` WHERE 1=1`
	var args []any
	if q.ContentHash != "" {
		query += ` AND content_hash = ?`
		args = append(args, q.ContentHash)
	}
	if q.Platform != "" {
		query += ` AND platform = ?`
		args = append(args, q.Platform)
	}
	if q.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(q.Status))
	}
	if !q.Start.IsZero() {
		query += ` AND started_at >= ?`
		args = append(args, q.Start.Unix())
	}
	if !q.End.IsZero() {
		query += ` AND started_at <= ?`
		args = append(args, q.End.Unix())
	}
	query += ` ORDER BY started_at, content_hash, platform, seq`
	return s.listAttempts(ctx, query, args...)
}

// RequestRetry appends the operator pending marker for a pair. It refuses
// while an attempt is in flight since per-pair attempts are sequential.
func (s *Store) RequestRetry(ctx context.Context, hash, platform string, now time.Time, note string) (model.DeliveryAttempt, error) {
	latest, err := s.Latest(ctx, hash, platform)
	if err != nil && err != store.ErrNotFound {
		return model.DeliveryAttempt{}, err
	}
	if err == nil && latest.Status == model.StatusInFlight {
		return model.DeliveryAttempt{}, store.ErrClaimConflict
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO delivery_attempts (id, content_hash, platform, seq, status, detail, started_at, completed_at)
         VALUES (?, ?, ?,
             (SELECT COALESCE(MAX(seq), 0) + 1 FROM delivery_attempts WHERE content_hash = ? AND platform = ?),
             ?, ?, ?, ?)`,
		id, hash, platform, hash, platform, string(model.StatusPending), note, now.Unix(), now.Unix())
	if err != nil {
		return model.DeliveryAttempt{}, err
	}
	return s.attemptByID(ctx, id)
}

// MarkAbandoned appends the terminal abandoned row for a pair.
func (s *Store) MarkAbandoned(ctx context.Context, hash, platform string, now time.Time, detail string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO delivery_attempts (id, content_hash, platform, seq, status, detail, started_at, completed_at)
         VALUES (?, ?, ?,
             (SELECT COALESCE(MAX(seq), 0) + 1 FROM delivery_attempts WHERE content_hash = ? AND platform = ?),
             ?, ?, ?, ?)`,
		uuid.NewString(), hash, platform, hash, platform,
		string(model.StatusAbandoned), detail, now.Unix(), now.Unix())
	return err
}

// SuccessCounts returns succeeded attempt counts per content hash.
func (s *Store) SuccessCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT content_hash, COUNT(*) FROM delivery_attempts WHERE status = ? GROUP BY content_hash`,
		string(model.StatusSucceeded))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make(map[string]int)
	for rows.Next() {
		var (
			hash string
			n    int
		)
		if err := rows.Scan(&hash, &n); err != nil {
			return nil, err
		}
		out[hash] = n
	}
	return out, rows.Err()
}

const selectAttempt = `SELECT id, content_hash, platform, seq, status, detail, remote_ref, started_at, completed_at
    FROM delivery_attempts`

func (s *Store) attemptByID(ctx context.Context, id string) (model.DeliveryAttempt, error) {
	row := s.db.QueryRowContext(ctx, selectAttempt+` WHERE id = ?`, id)
	a, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return model.DeliveryAttempt{}, store.ErrNotFound
	}
	return a, err
}

func (s *Store) listAttempts(ctx context.Context, query string, args ...any) ([]model.DeliveryAttempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.DeliveryAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAttempt(sc scanner) (model.DeliveryAttempt, error) {
	var (
		a           model.DeliveryAttempt
		status      string
		detail      sql.NullString
		remoteRef   sql.NullString
		startedAt   int64
		completedAt sql.NullInt64
	)
	if err := sc.Scan(&a.ID, &a.ContentHash, &a.Platform, &a.Seq, &status,
		&detail, &remoteRef, &startedAt, &completedAt); err != nil {
		return model.DeliveryAttempt{}, err
	}
	a.Status = model.AttemptStatus(status)
	a.Detail = detail.String
	a.RemoteRef = remoteRef.String
	a.StartedAt = time.Unix(startedAt, 0).UTC()
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		a.CompletedAt = &t
	}
	return a, nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on the
// attempts table.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
