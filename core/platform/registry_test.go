package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryEnabledSorted(t *testing.T) {
	ok := AdapterFunc(func(context.Context, PublishRequest) (Outcome, error) {
		return Outcome{}, nil
	})
	r, err := NewRegistry(map[string]Adapter{"tiktok": ok, "instagram": ok})
	assert.NoError(t, err)
	assert.Equal(t, []string{"instagram", "tiktok"}, r.Enabled())

	a, found := r.Adapter("instagram")
	assert.True(t, found)
	assert.NotNil(t, a)
	_, found = r.Adapter("youtube")
	assert.False(t, found)
}

func TestRegistryRejectsNilAdapter(t *testing.T) {
	_, err := NewRegistry(map[string]Adapter{"instagram": nil})
	assert.Error(t, err)
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	ok := AdapterFunc(func(context.Context, PublishRequest) (Outcome, error) {
		return Outcome{}, nil
	})
	_, err := NewRegistry(map[string]Adapter{"": ok})
	assert.Error(t, err)
}
