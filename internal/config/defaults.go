package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultTargetPrice        = 1_000_000 // 1.00 in micro-units
	DefaultRebaseCooldown     = 24 * time.Hour
	DefaultMinConfidence      = 50
	DefaultMaxRebasePct       = 10
	DefaultMinOracles         = 1
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultBatchSize          = 100
	DefaultFlushInterval      = 1 * time.Second
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultReadTimeout        = 30 * time.Second
	DefaultTriggerInterval    = 1 * time.Minute
	DefaultHealthPort         = 8080
)

func (c *Config) applyDefaults() {
	// Stabilizer defaults
	if c.Stabilizer.TargetPrice == 0 {
		c.Stabilizer.TargetPrice = DefaultTargetPrice
	}
	if c.Stabilizer.RebaseCooldown == 0 {
		c.Stabilizer.RebaseCooldown = Duration(DefaultRebaseCooldown)
	}
	if c.Stabilizer.MinConfidence == 0 {
		c.Stabilizer.MinConfidence = DefaultMinConfidence
	}
	if c.Stabilizer.MaxRebasePct == 0 {
		c.Stabilizer.MaxRebasePct = DefaultMaxRebasePct
	}

	// Oracle defaults
	if c.Oracle.MinOracles == 0 {
		c.Oracle.MinOracles = DefaultMinOracles
	}

	// Feed defaults
	if c.Feeds.ReconnectBaseDelay == 0 {
		c.Feeds.ReconnectBaseDelay = Duration(DefaultReconnectBaseDelay)
	}
	if c.Feeds.ReconnectMaxDelay == 0 {
		c.Feeds.ReconnectMaxDelay = Duration(DefaultReconnectMaxDelay)
	}
	if c.Feeds.ReadTimeout == 0 {
		c.Feeds.ReadTimeout = Duration(DefaultReadTimeout)
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// History defaults
	if c.History.BatchSize == 0 {
		c.History.BatchSize = DefaultBatchSize
	}
	if c.History.FlushInterval == 0 {
		c.History.FlushInterval = Duration(DefaultFlushInterval)
	}

	// Trigger defaults
	if c.Trigger.Interval == 0 {
		c.Trigger.Interval = Duration(DefaultTriggerInterval)
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
}
