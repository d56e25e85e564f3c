package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/clipcast/auth"
	"github.com/kilianp07/clipcast/core/dispatch"
	"github.com/kilianp07/clipcast/core/metrics"
	"github.com/kilianp07/clipcast/core/retry"
)

type Config struct {
	Storage   StorageConfig             `json:"storage"`
	Scheduler dispatch.Config           `json:"scheduler"`
	Retry     retry.Config              `json:"retry"`
	Platforms map[string]PlatformConfig `json:"platforms"`
	Metrics   metrics.Config            `json:"metrics"`
	API       APIConfig                 `json:"api"`
	Logging   LoggingConfig             `json:"logging"`
}

// StorageConfig locates the sqlite database and the content upload directory.
type StorageConfig struct {
	Path      string `json:"path"`
	UploadDir string `json:"upload_dir"`
}

// SetDefaults applies sane defaults.
func (c *StorageConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "videos.db"
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
}

// PlatformConfig describes one target platform. A platform is enabled when
// its credential is present; there is no separate enabled flag.
type PlatformConfig struct {
	// Kind selects the adapter implementation, e.g. "webhook".
	Kind     string `json:"kind"`
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key"`
	// OAuth configures a client credentials grant as an alternative to a
	// static API key.
	OAuth auth.Conf `json:"oauth"`
}

// Enabled reports whether the platform has credentials configured.
func (c PlatformConfig) Enabled() bool { return c.APIKey != "" || c.OAuth.Enabled() }

// APIConfig defines the operator HTTP API settings.
type APIConfig struct {
	// Addr is the listen address; empty disables the API server.
	Addr string `json:"addr"`
	// Token guards all endpoints via "Authorization: Bearer <token>" when
	// non-empty.
	Token string `json:"token"`
}

// Load reads the configuration file, applies CLIP_ environment overrides and
// validates all sections.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides, e.g. CLIP_API__TOKEN=secret.
	if err := k.Load(env.Provider("CLIP_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "clip_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Storage.SetDefaults()
	cfg.Scheduler.SetDefaults()
	cfg.Retry.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Logging.SetDefaults()
	if err := cfg.Scheduler.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	for name, p := range cfg.Platforms {
		if p.Enabled() && (p.Kind == "" || p.Kind == "webhook") && p.Endpoint == "" {
			return nil, fmt.Errorf("platform %s: endpoint is required", name)
		}
	}
	return &cfg, nil
}
