// Package config loads the application configuration from defaults, an
// optional YAML file, and ASSESSCORE_-prefixed environment variables, in
// that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ASSESSCORE_"

// Config is the top-level application configuration.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Session   SessionConfig   `koanf:"session"`
	Retry     RetryConfig     `koanf:"retry"`
	Projector ProjectorConfig `koanf:"projector"`
}

// DatabaseConfig configures the Postgres connections. The event store and
// the projection stores may point at the same database or at different ones.
type DatabaseConfig struct {
	EventStoreDSN string `koanf:"eventstore_dsn"`
	// EventStoreReplicaDSN optionally points at a read replica of the event
	// store. When set, reads that tolerate eventual consistency are served
	// from the replica.
	EventStoreReplicaDSN string `koanf:"eventstore_replica_dsn"`
	ProjectionsDSN       string `koanf:"projections_dsn"`
	MaxOpenConns         int    `koanf:"max_open_conns"`
	MaxIdleConns         int    `koanf:"max_idle_conns"`
}

// SessionConfig configures assessment session behavior.
type SessionConfig struct {
	// LifetimeHours is how long a session stays usable after creation.
	LifetimeHours int `koanf:"lifetime_hours"`
}

// Lifetime returns the session lifetime as a duration.
func (c SessionConfig) Lifetime() time.Duration {
	return time.Duration(c.LifetimeHours) * time.Hour
}

// RetryConfig configures the concurrency-conflict retry loop of the command
// handlers.
type RetryConfig struct {
	MaxAttempts  int           `koanf:"max_attempts"`
	BaseDelay    time.Duration `koanf:"base_delay"`
	JitterFactor float64       `koanf:"jitter_factor"`
}

// ProjectorConfig configures the catch-up projector.
type ProjectorConfig struct {
	Name         string        `koanf:"name"`
	BatchSize    int           `koanf:"batch_size"`
	PollInterval time.Duration `koanf:"poll_interval"`
}

// Validate reports the first configuration error found, or nil.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.EventStoreDSN) == "" {
		return fmt.Errorf("database.eventstore_dsn is required")
	}
	if strings.TrimSpace(c.Database.ProjectionsDSN) == "" {
		return fmt.Errorf("database.projections_dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}

	if c.Session.LifetimeHours <= 0 {
		return fmt.Errorf("session.lifetime_hours must be > 0")
	}

	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	if c.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry.base_delay must be > 0")
	}
	if c.Retry.JitterFactor < 0 || c.Retry.JitterFactor > 1 {
		return fmt.Errorf("retry.jitter_factor must be between 0 and 1")
	}

	if strings.TrimSpace(c.Projector.Name) == "" {
		return fmt.Errorf("projector.name is required")
	}
	if c.Projector.BatchSize <= 0 {
		return fmt.Errorf("projector.batch_size must be > 0")
	}
	if c.Projector.PollInterval <= 0 {
		return fmt.Errorf("projector.poll_interval must be > 0")
	}

	return nil
}

// Load parses config from defaults, then the file at configPath (if given),
// then the environment, and validates the result. Env vars use the
// ASSESSCORE_ prefix with double underscores as section separators, e.g.
// ASSESSCORE_DATABASE__EVENTSTORE_DSN.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"database.eventstore_dsn":         "",
		"database.eventstore_replica_dsn": "",
		"database.projections_dsn":        "",
		"database.max_open_conns":         25,
		"database.max_idle_conns":         25,
		"session.lifetime_hours":          72,
		"retry.max_attempts":              6,
		"retry.base_delay":                "10ms",
		"retry.jitter_factor":             0.3,
		"projector.name":                  "catch-up",
		"projector.batch_size":            200,
		"projector.poll_interval":         "2s",
	}
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("setting default %s: %w", key, err)
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
