package dispatch

import (
	"fmt"
	"time"
)

// Config defines scheduling and dispatch settings.
type Config struct {
	PollIntervalSeconds      int `json:"poll_interval_seconds"`
	PerAttemptTimeoutSeconds int `json:"per_attempt_timeout_seconds"`
	MaxConcurrentAttempts    int `json:"max_concurrent_attempts"`
	// LivenessTimeoutSeconds is the maximum age of an in-flight attempt
	// before the sweep marks it failed as left over from a crashed or
	// stalled worker.
	LivenessTimeoutSeconds int `json:"liveness_timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = 30
	}
	if c.PerAttemptTimeoutSeconds <= 0 {
		c.PerAttemptTimeoutSeconds = 120
	}
	if c.MaxConcurrentAttempts <= 0 {
		c.MaxConcurrentAttempts = 2
	}
	if c.LivenessTimeoutSeconds <= 0 {
		c.LivenessTimeoutSeconds = 900
	}
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.LivenessTimeoutSeconds <= c.PerAttemptTimeoutSeconds {
		return fmt.Errorf("liveness_timeout_seconds (%d) must exceed per_attempt_timeout_seconds (%d)",
			c.LivenessTimeoutSeconds, c.PerAttemptTimeoutSeconds)
	}
	return nil
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c Config) PerAttemptTimeout() time.Duration {
	return time.Duration(c.PerAttemptTimeoutSeconds) * time.Second
}

func (c Config) LivenessTimeout() time.Duration {
	return time.Duration(c.LivenessTimeoutSeconds) * time.Second
}
