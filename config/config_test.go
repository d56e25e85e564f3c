package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `storage:
  path: "clips.db"
  upload_dir: "media"
scheduler:
  poll_interval_seconds: 15
  per_attempt_timeout_seconds: 60
  max_concurrent_attempts: 4
  liveness_timeout_seconds: 600
retry:
  base_seconds: 300
  cap_seconds: 3600
  max_attempts: 5
platforms:
  instagram:
    kind: "webhook"
    endpoint: "https://publish.example.com/instagram"
    api_key: "ig-key"
  tiktok:
    kind: "webhook"
    endpoint: "https://publish.example.com/tiktok"
metrics:
  prometheus_enabled: true
api:
  addr: ":8080"
  token: "secret"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"storage.path", cfg.Storage.Path, "clips.db"},
		{"storage.upload_dir", cfg.Storage.UploadDir, "media"},
		{"poll_interval", cfg.Scheduler.PollInterval(), 15 * time.Second},
		{"per_attempt_timeout", cfg.Scheduler.PerAttemptTimeout(), time.Minute},
		{"max_concurrent", cfg.Scheduler.MaxConcurrentAttempts, 4},
		{"liveness_timeout", cfg.Scheduler.LivenessTimeout(), 10 * time.Minute},
		{"retry.max_attempts", cfg.Retry.MaxAttempts, 5},
		{"retry.base", cfg.Retry.Policy().Base, 5 * time.Minute},
		{"instagram.enabled", cfg.Platforms["instagram"].Enabled(), true},
		{"tiktok.enabled", cfg.Platforms["tiktok"].Enabled(), false},
		{"prometheus_enabled", cfg.Metrics.PrometheusEnabled, true},
		{"prometheus_port", cfg.Metrics.PrometheusPort, "2112"},
		{"api.addr", cfg.API.Addr, ":8080"},
		{"api.token", cfg.API.Token, "secret"},
		{"logging.level", cfg.Logging.Level, "info"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `storage: {}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Scheduler.PollIntervalSeconds != 30 {
		t.Errorf("poll interval default: got %d", cfg.Scheduler.PollIntervalSeconds)
	}
	if cfg.Retry.BaseSeconds != 300 || cfg.Retry.CapSeconds != 86400 || cfg.Retry.MaxAttempts != 5 {
		t.Errorf("retry defaults: %+v", cfg.Retry)
	}
	if cfg.Storage.Path != "videos.db" || cfg.Storage.UploadDir != "uploads" {
		t.Errorf("storage defaults: %+v", cfg.Storage)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `api:
  addr: ":8080"
`)
	t.Setenv("CLIP_API__TOKEN", "env-secret")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.API.Token != "env-secret" {
		t.Errorf("env override: got %q", cfg.API.Token)
	}
}

func TestLoadOAuthPlatform(t *testing.T) {
	path := writeConfig(t, `platforms:
  youtube:
    kind: "webhook"
    endpoint: "https://publish.example.com/youtube"
    oauth:
      client_id: "cid"
      client_secret: "cs"
      auth_url: "https://auth.example.com/token"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	p := cfg.Platforms["youtube"]
	if !p.Enabled() {
		t.Fatal("oauth platform should be enabled")
	}
	if p.OAuth.ClientID != "cid" || p.OAuth.AuthURL != "https://auth.example.com/token" {
		t.Errorf("oauth config: %+v", p.OAuth)
	}
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLoadRejectsWebhookWithoutEndpoint(t *testing.T) {
	path := writeConfig(t, `platforms:
  instagram:
    kind: "webhook"
    api_key: "ig-key"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for enabled webhook without endpoint")
	}
}

func TestLoadRejectsLivenessBelowAttemptTimeout(t *testing.T) {
	path := writeConfig(t, `scheduler:
  per_attempt_timeout_seconds: 600
  liveness_timeout_seconds: 300
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for liveness below attempt timeout")
	}
}
