package adapters

import (
	"context"

	"github.com/google/uuid"

	"github.com/kilianp07/clipcast/core/platform"
	"github.com/kilianp07/clipcast/infra/logger"
)

// MockAdapter accepts every publish request without contacting any platform.
// Useful for local development and demos.
type MockAdapter struct {
	name string
	log  logger.Logger
}

// NewMockAdapter creates a mock adapter for the given platform name.
func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{name: name, log: logger.New("mock-" + name)}
}

// Publish logs the request and returns a generated remote reference.
func (a *MockAdapter) Publish(_ context.Context, req platform.PublishRequest) (platform.Outcome, error) {
	ref := uuid.New().String()
	a.log.Infof("published %q to %s as %s", req.Name, a.name, ref)
	return platform.Outcome{RemoteRef: ref}, nil
}
