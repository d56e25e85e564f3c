package model

import (
	"fmt"
	"time"
)

// ContentItem represents one piece of uploaded content identified by its
// content hash. The ingestion side owns creation; the dispatch core only
// reads scheduling fields.
type ContentItem struct {
	Hash        string    `json:"hash"`
	Name        string    `json:"name"`
	Caption     string    `json:"caption"`
	ScheduledAt time.Time `json:"scheduled_at"`
	CreatedAt   time.Time `json:"created_at"`

	// Location is an opaque reference into content-addressed storage.
	Location  string `json:"location"`
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
}

// Validate checks that the item carries the fields the scheduler relies on.
func (c ContentItem) Validate() error {
	if c.Hash == "" {
		return fmt.Errorf("content hash must not be empty")
	}
	if c.ScheduledAt.IsZero() {
		return fmt.Errorf("scheduled_at must be set")
	}
	return nil
}

// Due reports whether the item's scheduled time has elapsed.
func (c ContentItem) Due(now time.Time) bool {
	return !c.ScheduledAt.After(now)
}
