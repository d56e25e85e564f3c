package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/clipcast/auth"
	"github.com/kilianp07/clipcast/config"
	"github.com/kilianp07/clipcast/core/platform"
)

func TestWebhookPublish(t *testing.T) {
	var got webhookRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(webhookResponse{Ref: "yt-42"})
	}))
	defer srv.Close()

	a := NewWebhookAdapter("youtube", config.PlatformConfig{Endpoint: srv.URL, APIKey: "secret"})
	sched := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	out, err := a.Publish(context.Background(), platform.PublishRequest{
		ContentRef:  "uploads/clip.mp4",
		Name:        "clip.mp4",
		Caption:     "first clip",
		ScheduledAt: sched,
	})
	require.NoError(t, err)
	assert.Equal(t, "yt-42", out.RemoteRef)
	assert.Equal(t, "uploads/clip.mp4", got.ContentRef)
	assert.Equal(t, sched.Unix(), got.ScheduledAt)
}

func TestWebhookPublishOAuth(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"granted","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer granted", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(webhookResponse{Ref: "ig-7"})
	}))
	defer srv.Close()

	a := NewWebhookAdapter("instagram", config.PlatformConfig{
		Endpoint: srv.URL,
		OAuth:    auth.Conf{ClientID: "id", ClientSecret: "secret", AuthURL: tokenSrv.URL},
	})
	out, err := a.Publish(context.Background(), platform.PublishRequest{Name: "clip.mp4"})
	require.NoError(t, err)
	assert.Equal(t, "ig-7", out.RemoteRef)
}

func TestWebhookPublishRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := NewWebhookAdapter("tiktok", config.PlatformConfig{Endpoint: srv.URL, APIKey: "secret"})
	_, err := a.Publish(context.Background(), platform.PublishRequest{Name: "clip.mp4"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tiktok returned 429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestWebhookPublishHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	a := NewWebhookAdapter("youtube", config.PlatformConfig{Endpoint: srv.URL, APIKey: "secret"})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := a.Publish(ctx, platform.PublishRequest{Name: "clip.mp4"})
	require.Error(t, err)
}

func TestBuildRegistrySkipsDisabled(t *testing.T) {
	reg, err := BuildRegistry(map[string]config.PlatformConfig{
		"youtube":   {Kind: "webhook", Endpoint: "http://localhost:9", APIKey: "k"},
		"instagram": {Kind: "webhook", Endpoint: "http://localhost:9"},
		"tiktok":    {Kind: "mock", APIKey: "k"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"tiktok", "youtube"}, reg.Enabled())
}

func TestBuildRegistryUnknownKind(t *testing.T) {
	_, err := BuildRegistry(map[string]config.PlatformConfig{
		"youtube": {Kind: "grpc", APIKey: "k"},
	})
	require.Error(t, err)
}
