// Package platform defines the opaque publishing capability the dispatch
// core invokes per platform, and the registry of enabled platforms.
package platform

import (
	"context"
	"time"
)

// PublishRequest carries everything an adapter needs to publish one content
// item. ContentRef is an opaque reference into content-addressed storage.
type PublishRequest struct {
	ContentRef  string
	Name        string
	Caption     string
	ScheduledAt time.Time
}

// Outcome is the successful result of a publish call. Failures are plain
// errors carrying the platform's reason.
type Outcome struct {
	RemoteRef string
}

// Adapter is the per-platform publishing capability. Implementations may use
// any transport internally; the core only sees this contract. Publish must
// honor ctx cancellation on a best-effort basis; the coordinator additionally
// bounds every call with its own timeout.
type Adapter interface {
	Publish(ctx context.Context, req PublishRequest) (Outcome, error)
}

// AdapterFunc adapts a function to the Adapter interface.
type AdapterFunc func(ctx context.Context, req PublishRequest) (Outcome, error)

func (f AdapterFunc) Publish(ctx context.Context, req PublishRequest) (Outcome, error) {
	return f(ctx, req)
}
