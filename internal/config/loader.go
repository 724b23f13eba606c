package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// File names searched in the work directory, in order.
var FileNames = []string{".dsql.yml", ".dsql.yaml", ".dsql.toml"}

// ErrNotFound is returned when no configuration file exists.
var ErrNotFound = errors.New("config file not found")

// Loader handles loading and parsing .dsql.yml / .dsql.toml
type Loader struct {
	workDir string
}

// NewLoader creates a new config loader
func NewLoader(workDir string) *Loader {
	return &Loader{workDir: workDir}
}

// Path returns the configuration file in use, or the default .dsql.yml
// path if none exists yet.
func (l *Loader) Path() string {
	for _, name := range FileNames {
		p := filepath.Join(l.workDir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(l.workDir, FileNames[0])
}

// Load reads and parses the configuration file
func (l *Loader) Load() (*Config, error) {
	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s\nRun 'dsql init' to create one", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Keys missing from the file keep their defaults
	cfg := Defaults()
	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.Database.ConnectionString = os.ExpandEnv(cfg.Database.ConnectionString)
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.ConnectionString = url
	}

	if err := l.resolvePaths(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolvePaths converts relative statement paths to absolute
func (l *Loader) resolvePaths(cfg *Config) error {
	for i, path := range cfg.Statements.Paths {
		if filepath.IsAbs(path) {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(l.workDir, path))
		if err != nil {
			return fmt.Errorf("invalid statements path '%s': %w", path, err)
		}
		cfg.Statements.Paths[i] = abs
	}
	return nil
}

// LoadOrDefault loads config or returns defaults
func (l *Loader) LoadOrDefault() (*Config, error) {
	cfg, err := l.Load()
	if !errors.Is(err, ErrNotFound) {
		return cfg, err
	}
	cfg = Defaults()
	cfg.Database.ConnectionString = os.Getenv("DATABASE_URL")
	if err := l.resolvePaths(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the file in use, in its format
func (l *Loader) Save(cfg *Config) error {
	path := l.Path()

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Template returns a commented .dsql.yml
func Template() string {
	return `# dsql configuration
# Generated at {{.CreatedAt}}

version: "` + Version + `"
created_at: {{.CreatedAt}}

# Database connection settings
database:
  # postgres, pgx, mysql or sqlite
  driver: "postgres"
  # standard, mysql, postgresql or mssql (default: derived from driver)
  # dialect: "postgresql"
  # Use environment variable
  connection_string: ${DATABASE_URL}
  # OR hardcode (not recommended for production)
  # connection_string: "postgres://localhost:5432/myapp_dev"

  # Connection pool settings
  max_connections: 10
  connection_timeout: 30  # seconds

# Defaults for exec
defaults:
  # Commit after each statement
  commit: true
  # Print statements instead of running them
  dry_run: false

# Statement description files (relative or absolute)
statements:
  paths:
    - "./statements"

# Append every statement to .dsql/journal/
journal:
  enabled: true

# dsql serve
server:
  addr: "127.0.0.1:8088"
`
}
