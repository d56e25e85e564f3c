package adapters

import (
	"fmt"
	"strings"

	"github.com/kilianp07/clipcast/config"
	"github.com/kilianp07/clipcast/core/platform"
	"github.com/kilianp07/clipcast/infra/logger"
)

// BuildRegistry constructs the adapter registry from the platform
// configuration. Platforms without credentials are skipped, not failed, so
// operators can keep stanzas for platforms they have not onboarded yet.
func BuildRegistry(platforms map[string]config.PlatformConfig) (*platform.Registry, error) {
	log := logger.New("adapters")
	adapters := make(map[string]platform.Adapter)
	for name, cfg := range platforms {
		if !cfg.Enabled() {
			log.Infof("platform %s disabled: no credentials", name)
			continue
		}
		switch strings.ToLower(cfg.Kind) {
		case "", "webhook":
			adapters[name] = NewWebhookAdapter(name, cfg)
		case "mock":
			adapters[name] = NewMockAdapter(name)
		default:
			return nil, fmt.Errorf("platform %s: unknown adapter kind %q", name, cfg.Kind)
		}
	}
	return platform.NewRegistry(adapters)
}
