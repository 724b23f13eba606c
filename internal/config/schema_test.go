package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chameleon-db/dsql/pkg/builder"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, Version, cfg.Version)
	assert.True(t, cfg.Defaults.Commit)
	assert.False(t, cfg.Defaults.DryRun)
	assert.NotEmpty(t, cfg.Statements.Paths)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		db    DatabaseConfig
		field string
	}{
		{"missing driver", DatabaseConfig{}, "database.driver"},
		{"unknown driver", DatabaseConfig{Driver: "oracle"}, "database.driver"},
		{"unknown dialect", DatabaseConfig{Driver: "mysql", Dialect: "db2"}, "database.dialect"},
		{"negative pool", DatabaseConfig{Driver: "mysql", MaxConnections: -1}, "database.max_connections"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Database: tt.db}
			err := cfg.Validate()

			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}

	cfg := &Config{Database: DatabaseConfig{Driver: "sqlite"}}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30, cfg.Database.ConnectionTimeout)
}

func TestResolveDialect(t *testing.T) {
	tests := []struct {
		db   DatabaseConfig
		want builder.Dialect
	}{
		{DatabaseConfig{Driver: "postgres"}, builder.Postgres},
		{DatabaseConfig{Driver: "pgx"}, builder.Postgres},
		{DatabaseConfig{Driver: "mysql"}, builder.MySQL},
		{DatabaseConfig{Driver: "sqlite3"}, builder.Standard},
		{DatabaseConfig{Driver: "mysql", Dialect: "mssql"}, builder.MSSQL},
	}

	for _, tt := range tests {
		got, err := tt.db.ResolveDialect()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestLoader_YAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DSQL_TEST_DSN", "root@tcp(localhost)/shop")

	content := `
database:
  driver: mysql
  connection_string: ${DSQL_TEST_DSN}
defaults:
  commit: false
statements:
  paths: ["./queries"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".dsql.yml"), []byte(content), 0644))

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "root@tcp(localhost)/shop", cfg.Database.ConnectionString)
	assert.False(t, cfg.Defaults.Commit)
	assert.Equal(t, []string{filepath.Join(dir, "queries")}, cfg.Statements.Paths)

	// untouched keys keep their defaults
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "127.0.0.1:8088", cfg.Server.Addr)
}

func TestLoader_TOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "postgres://override@db/app")

	content := `
[database]
driver = "pgx"
connection_string = "postgres://ignored@db/app"
max_connections = 4

[journal]
enabled = false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".dsql.toml"), []byte(content), 0644))

	loader := NewLoader(dir)
	assert.Equal(t, filepath.Join(dir, ".dsql.toml"), loader.Path())

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://override@db/app", cfg.Database.ConnectionString)
	assert.Equal(t, 4, cfg.Database.MaxConnections)
	assert.False(t, cfg.Journal.Enabled)
	assert.True(t, cfg.Defaults.Commit)
}

func TestLoader_NotFound(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(dir)

	_, err := loader.Load()
	assert.ErrorIs(t, err, ErrNotFound)

	t.Setenv("DATABASE_URL", "postgres://db/app")
	cfg, err := loader.LoadOrDefault()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://db/app", cfg.Database.ConnectionString)
	assert.Equal(t, []string{filepath.Join(dir, "statements")}, cfg.Statements.Paths)
}

func TestLoader_SaveRoundTrip(t *testing.T) {
	for _, name := range []string{".dsql.yml", ".dsql.toml"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			t.Setenv("DATABASE_URL", "")
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))

			cfg := Defaults()
			cfg.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			cfg.Database.Driver = "sqlite"
			cfg.Database.ConnectionString = "file:app.db"

			loader := NewLoader(dir)
			require.NoError(t, loader.Save(cfg))

			loaded, err := loader.Load()
			require.NoError(t, err)
			assert.Equal(t, "sqlite", loaded.Database.Driver)
			assert.Equal(t, "file:app.db", loaded.Database.ConnectionString)
			assert.True(t, loaded.CreatedAt.Equal(cfg.CreatedAt))
		})
	}
}

func TestTemplateParses(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	dir := t.TempDir()
	content := strings.ReplaceAll(Template(), "{{.CreatedAt}}", "2026-01-02T03:04:05Z")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".dsql.yml"), []byte(content), 0644))

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "", cfg.Database.ConnectionString)
}
