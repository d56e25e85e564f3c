// Package sqlite persists content records and the delivery ledger in a
// single SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/clipcast/core/model"
	"github.com/kilianp07/clipcast/core/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS videos (
    hash TEXT PRIMARY KEY,
    name TEXT,
    caption TEXT,
    scheduled_at INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    location TEXT,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    mime_type TEXT
);
CREATE INDEX IF NOT EXISTS idx_videos_scheduled_at ON videos(scheduled_at);
CREATE TABLE IF NOT EXISTS delivery_attempts (
    id TEXT PRIMARY KEY,
    content_hash TEXT NOT NULL,
    platform TEXT NOT NULL,
    seq INTEGER NOT NULL,
    status TEXT NOT NULL,
    detail TEXT,
    remote_ref TEXT,
    started_at INTEGER NOT NULL,
    completed_at INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_attempts_pair_seq
    ON delivery_attempts(content_hash, platform, seq);
CREATE UNIQUE INDEX IF NOT EXISTS ux_attempts_in_flight
    ON delivery_attempts(content_hash, platform) WHERE status = 'in_flight';
CREATE INDEX IF NOT EXISTS idx_attempts_status ON delivery_attempts(status);
CREATE INDEX IF NOT EXISTS idx_attempts_pair ON delivery_attempts(content_hash, platform);
`

// Store implements store.ContentStore and store.Ledger on SQLite. The
// partial unique index on in-flight rows provides the atomic claim-or-skip
// guarantee: a second claim for the same pair violates the index and is
// reported as store.ErrClaimConflict.
type Store struct {
	db *sql.DB
}

// New opens or creates the database at path and ensures the schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Upsert inserts the item or updates the existing record with the same hash.
func (s *Store) Upsert(ctx context.Context, item model.ContentItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO videos (hash, name, caption, scheduled_at, created_at, location, size_bytes, mime_type)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(hash) DO UPDATE SET
             name = excluded.name,
             caption = excluded.caption,
             scheduled_at = excluded.scheduled_at,
             location = excluded.location,
             size_bytes = excluded.size_bytes,
             mime_type = excluded.mime_type`,
		item.Hash, item.Name, item.Caption, item.ScheduledAt.Unix(), item.CreatedAt.Unix(),
		item.Location, item.SizeBytes, item.MimeType)
	return err
}

// Get returns the content item with the given hash.
func (s *Store) Get(ctx context.Context, hash string) (model.ContentItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT hash, name, caption, scheduled_at, created_at, location, size_bytes, mime_type
         FROM videos WHERE hash = ?`, hash)
	item, err := scanContent(row)
	if err == sql.ErrNoRows {
		return model.ContentItem{}, store.ErrNotFound
	}
	return item, err
}

// List returns all content items ordered by schedule.
func (s *Store) List(ctx context.Context) ([]model.ContentItem, error) {
	return s.listContent(ctx,
		`SELECT hash, name, caption, scheduled_at, created_at, location, size_bytes, mime_type
         FROM videos ORDER BY scheduled_at, hash`)
}

// ListDue returns items whose scheduled time has elapsed, oldest first with
// the hash as tiebreak for deterministic ordering.
func (s *Store) ListDue(ctx context.Context, now time.Time) ([]model.ContentItem, error) {
	return s.listContent(ctx,
		`SELECT hash, name, caption, scheduled_at, created_at, location, size_bytes, mime_type
         FROM videos WHERE scheduled_at <= ? ORDER BY scheduled_at, hash`, now.Unix())
}

func (s *Store) listContent(ctx context.Context, query string, args ...any) ([]model.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []model.ContentItem
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContent(sc scanner) (model.ContentItem, error) {
	var (
		item                   model.ContentItem
		scheduledAt, createdAt int64
	)
	if err := sc.Scan(&item.Hash, &item.Name, &item.Caption, &scheduledAt, &createdAt,
		&item.Location, &item.SizeBytes, &item.MimeType); err != nil {
		return model.ContentItem{}, err
	}
	item.ScheduledAt = time.Unix(scheduledAt, 0).UTC()
	item.CreatedAt = time.Unix(createdAt, 0).UTC()
	return item, nil
}
