package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Stabilizer.TargetPrice < 1 {
		return errors.New("stabilizer.target_price must be >= 1")
	}
	if c.Stabilizer.MinConfidence < 0 || c.Stabilizer.MinConfidence > 100 {
		return fmt.Errorf("stabilizer.min_confidence must be between 0 and 100, got %d", c.Stabilizer.MinConfidence)
	}
	if c.Stabilizer.MaxRebasePct < 1 || c.Stabilizer.MaxRebasePct > 100 {
		return fmt.Errorf("stabilizer.max_rebase_pct must be between 1 and 100, got %d", c.Stabilizer.MaxRebasePct)
	}
	if c.Stabilizer.RebaseCooldown < 1 {
		return errors.New("stabilizer.rebase_cooldown must be positive")
	}

	if c.Ledger.InitialSupply < 1 {
		return errors.New("ledger.initial_supply must be >= 1")
	}
	if c.Ledger.InitialHolder == "" {
		return errors.New("ledger.initial_holder is required")
	}
	if c.Ledger.MaxSupply != 0 && c.Ledger.MaxSupply < c.Ledger.InitialSupply {
		return errors.New("ledger.max_supply cannot be below ledger.initial_supply")
	}

	if c.Oracle.MinOracles < 1 {
		return errors.New("oracle.min_oracles must be >= 1")
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		prefix := fmt.Sprintf("sources[%d]", i)
		if src.ID == "" {
			return fmt.Errorf("%s.id is required", prefix)
		}
		if seen[src.ID] {
			return fmt.Errorf("%s.id %q is a duplicate", prefix, src.ID)
		}
		seen[src.ID] = true
		if src.Weight < 1 {
			return fmt.Errorf("%s.weight must be >= 1", prefix)
		}
		if src.Heartbeat < 1 {
			return fmt.Errorf("%s.heartbeat must be positive", prefix)
		}
		if src.Scale < 0 || src.Scale > 18 {
			return fmt.Errorf("%s.scale must be between 0 and 18, got %d", prefix, src.Scale)
		}
	}

	if c.History.Persist {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
		if c.History.BatchSize < 1 {
			return errors.New("history.batch_size must be >= 1")
		}
	}

	if c.Trigger.Interval < 1 {
		return errors.New("trigger.interval must be positive")
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
