package retry

import (
	"fmt"
	"time"
)

// Config defines the retry policy settings.
type Config struct {
	BaseSeconds int `json:"base_seconds"`
	CapSeconds  int `json:"cap_seconds"`
	MaxAttempts int `json:"max_attempts"`
}

// SetDefaults applies the documented defaults.
func (c *Config) SetDefaults() {
	if c.BaseSeconds <= 0 {
		c.BaseSeconds = 300
	}
	if c.CapSeconds <= 0 {
		c.CapSeconds = 86400
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.CapSeconds < c.BaseSeconds {
		return fmt.Errorf("cap_seconds (%d) must not be below base_seconds (%d)", c.CapSeconds, c.BaseSeconds)
	}
	return nil
}

// Policy builds the exponential policy described by the configuration.
func (c Config) Policy() ExponentialPolicy {
	return ExponentialPolicy{
		Base:        time.Duration(c.BaseSeconds) * time.Second,
		Cap:         time.Duration(c.CapSeconds) * time.Second,
		MaxAttempts: c.MaxAttempts,
	}
}
