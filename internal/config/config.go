package config

// Config is the root configuration for a stabilizer instance.
type Config struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Stabilizer StabilizerConfig `yaml:"stabilizer"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Oracle     OracleConfig     `yaml:"oracle"`
	Sources    []SourceConfig   `yaml:"sources"`
	Feeds      FeedsConfig      `yaml:"feeds"`
	Database   DBConfig         `yaml:"database"`
	History    HistoryConfig    `yaml:"history"`
	Authz      AuthzConfig      `yaml:"authz"`
	Trigger    TriggerConfig    `yaml:"trigger"`
	Health     HealthConfig     `yaml:"health"`
}

// InstanceConfig identifies this stabilizer.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// StabilizerConfig holds controller policy settings.
type StabilizerConfig struct {
	TargetPrice    int64    `yaml:"target_price"` // micro-units, 1000000 = 1.00
	RebaseCooldown Duration `yaml:"rebase_cooldown"`
	MinConfidence  int      `yaml:"min_confidence"`
	MaxRebasePct   int64    `yaml:"max_rebase_pct"`
}

// LedgerConfig holds genesis and bounds settings.
type LedgerConfig struct {
	InitialSupply int64  `yaml:"initial_supply"` // display units
	InitialHolder string `yaml:"initial_holder"`
	MaxSupply     int64  `yaml:"max_supply"` // 0 = library default
}

// OracleConfig holds aggregation settings.
type OracleConfig struct {
	MinOracles int `yaml:"min_oracles"`
}

// SourceConfig seeds one oracle source at startup.
type SourceConfig struct {
	ID          string   `yaml:"id"`
	Weight      int64    `yaml:"weight"`
	Heartbeat   Duration `yaml:"heartbeat"`
	Scale       int      `yaml:"scale"`
	Description string   `yaml:"description"`
}

// FeedsConfig holds quote feed connection settings.
type FeedsConfig struct {
	Endpoints          []string `yaml:"endpoints"`
	ReconnectBaseDelay Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  Duration `yaml:"reconnect_max_delay"`
	ReadTimeout        Duration `yaml:"read_timeout"`
}

// DBConfig holds the PostgreSQL connection for rebase history.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// HistoryConfig holds history persistence settings. With Persist false the
// history lives in memory only and the database is never touched.
type HistoryConfig struct {
	Persist       bool     `yaml:"persist"`
	BatchSize     int      `yaml:"batch_size"`
	FlushInterval Duration `yaml:"flush_interval"`
}

// AuthzConfig assigns caller identities to roles.
type AuthzConfig struct {
	Admins    []string `yaml:"admins"`
	Operators []string `yaml:"operators"`
}

// TriggerConfig holds the daemon's rebase attempt schedule. The engine
// itself never self-schedules; the daemon is the external trigger.
type TriggerConfig struct {
	Interval Duration `yaml:"interval"`
}

// HealthConfig holds the HTTP health endpoint settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}
