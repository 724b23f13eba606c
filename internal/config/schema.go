package config

import (
	"strings"
	"time"

	"github.com/chameleon-db/dsql/pkg/builder"
)

// Config represents the complete .dsql.yml (or .dsql.toml) configuration
type Config struct {
	Version    string           `yaml:"version" toml:"version"`
	CreatedAt  time.Time        `yaml:"created_at" toml:"created_at"`
	Database   DatabaseConfig   `yaml:"database" toml:"database"`
	Defaults   DefaultsConfig   `yaml:"defaults" toml:"defaults"`
	Statements StatementsConfig `yaml:"statements" toml:"statements"`
	Journal    JournalConfig    `yaml:"journal" toml:"journal"`
	Server     ServerConfig     `yaml:"server" toml:"server"`
}

// DatabaseConfig holds database connection settings. Driver is one of
// postgres, pgx, mysql or sqlite; Dialect is derived from it when empty.
type DatabaseConfig struct {
	Driver            string `yaml:"driver" toml:"driver"`
	Dialect           string `yaml:"dialect,omitempty" toml:"dialect,omitempty"`
	ConnectionString  string `yaml:"connection_string" toml:"connection_string"`
	MaxConnections    int    `yaml:"max_connections,omitempty" toml:"max_connections,omitempty"`
	MinConnections    int    `yaml:"min_connections,omitempty" toml:"min_connections,omitempty"`
	ConnectionTimeout int    `yaml:"connection_timeout,omitempty" toml:"connection_timeout,omitempty"` // seconds
}

// DefaultsConfig holds the per-call defaults of the CLI
type DefaultsConfig struct {
	Commit bool `yaml:"commit" toml:"commit"`
	DryRun bool `yaml:"dry_run" toml:"dry_run"`
}

// StatementsConfig lists where statement description files live
type StatementsConfig struct {
	Paths []string `yaml:"paths" toml:"paths"`
}

// JournalConfig controls the statement journal
type JournalConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// ServerConfig holds settings of `dsql serve`
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// Version of the configuration format
const Version = "0.1.0"

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Version:   Version,
		CreatedAt: time.Now(),
		Database: DatabaseConfig{
			Driver:            "postgres",
			ConnectionString:  "${DATABASE_URL}",
			MaxConnections:    10,
			ConnectionTimeout: 30,
		},
		Defaults: DefaultsConfig{
			Commit: true,
			DryRun: false,
		},
		Statements: StatementsConfig{
			Paths: []string{"./statements"},
		},
		Journal: JournalConfig{
			Enabled: true,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8088",
		},
	}
}

var driverNames = map[string]string{
	"postgres":   "postgres",
	"postgresql": "postgres",
	"pgx":        "pgx",
	"mysql":      "mysql",
	"mariadb":    "mysql",
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
}

// DriverName returns the registered database/sql driver name, or "pgx"
// for the native pool.
func (d DatabaseConfig) DriverName() string {
	return driverNames[strings.ToLower(d.Driver)]
}

// ResolveDialect returns the configured dialect, falling back to the one
// implied by the driver.
func (d DatabaseConfig) ResolveDialect() (builder.Dialect, error) {
	if d.Dialect != "" {
		return builder.ParseDialect(d.Dialect)
	}
	return builder.ParseDialect(d.DriverName())
}

// Validate checks if config is valid
func (c *Config) Validate() error {
	if c.Database.Driver == "" {
		return &ConfigError{
			Field:  "database.driver",
			Reason: "Database driver is required",
		}
	}

	if c.Database.DriverName() == "" {
		return &ConfigError{
			Field:      "database.driver",
			Reason:     "Unknown driver " + c.Database.Driver,
			Suggestion: "Use postgres, pgx, mysql or sqlite",
		}
	}

	if _, err := c.Database.ResolveDialect(); err != nil {
		return &ConfigError{
			Field:      "database.dialect",
			Reason:     err.Error(),
			Suggestion: "Use standard, mysql, postgresql or mssql",
		}
	}

	if c.Database.MaxConnections < 0 || c.Database.MinConnections < 0 {
		return &ConfigError{
			Field:  "database.max_connections",
			Reason: "Connection pool sizes must not be negative",
		}
	}

	if c.Database.ConnectionTimeout < 1 {
		c.Database.ConnectionTimeout = 30
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Reason     string
	Suggestion string
}

func (e *ConfigError) Error() string {
	msg := "Configuration error: " + e.Field + ": " + e.Reason
	if e.Suggestion != "" {
		msg += "\nSuggestion: " + e.Suggestion
	}
	return msg
}
