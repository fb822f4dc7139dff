package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverBbolt, cfg.Store.Driver)
	assert.Equal(t, "synthgen.db", cfg.Store.Path)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 10000, cfg.Generator.MaxAttempts)
	require.NoError(t, cfg.Validate())

	scope, err := cfg.Scope()
	require.NoError(t, err)
	assert.Equal(t, synthgen.ScopeProcess, scope)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "synthgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: sqlite
  path: ledger.sqlite
generator:
  scope: PROCESS_ALL
  max_attempts: 50
log:
  format: json
`), 0o644))
	t.Setenv("SYNTHGEN_GENERATOR_MAX_ATTEMPTS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "ledger.sqlite", cfg.Store.Path)
	assert.Equal(t, "PROCESS_ALL", cfg.Generator.Scope)
	assert.Equal(t, 7, cfg.Generator.MaxAttempts, "environment wins over the file")
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SYNTHGEN_STORE_DRIVER=memory\nSYNTHGEN_HTTP_ADDR=127.0.0.1:9999\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("SYNTHGEN_STORE_DRIVER")
		os.Unsetenv("SYNTHGEN_HTTP_ADDR")
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "127.0.0.1:9999", cfg.HTTP.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("nope.yaml")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Store:     StoreConfig{Driver: DriverMemory},
		Generator: GeneratorConfig{Scope: "PROCESS", MaxAttempts: 1},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "redis" }},
		{"bbolt without path", func(c *Config) { c.Store.Driver = DriverBbolt }},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = DriverPostgres }},
		{"unknown scope", func(c *Config) { c.Generator.Scope = "GLOBAL" }},
		{"zero attempts", func(c *Config) { c.Generator.MaxAttempts = 0 }},
		{"unknown level", func(c *Config) { c.Log.Level = "trace" }},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
