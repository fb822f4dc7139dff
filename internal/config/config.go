// Package config loads synthgen settings from defaults, an optional config
// file, a .env file and SYNTHGEN_* environment variables, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"pkg.jsn.cam/synthgen/internal/logging"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

// EnvPrefix is prepended to every environment key, e.g. SYNTHGEN_STORE_DRIVER.
const EnvPrefix = "SYNTHGEN"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverBbolt    = "bbolt"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Generator GeneratorConfig `mapstructure:"generator"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

type GeneratorConfig struct {
	// ProcessID is stamped on requests that carry none. Empty picks a random
	// id per service start.
	ProcessID   string `mapstructure:"process_id"`
	Scope       string `mapstructure:"scope"`
	MaxAttempts int    `mapstructure:"max_attempts"`
	// Dictionary is a YAML file replacing the built-in reference data.
	Dictionary string `mapstructure:"dictionary"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", DriverBbolt)
	v.SetDefault("store.path", "synthgen.db")
	v.SetDefault("store.dsn", "")
	v.SetDefault("generator.process_id", "")
	v.SetDefault("generator.scope", synthgen.ScopeProcess.String())
	v.SetDefault("generator.max_attempts", 10000)
	v.SetDefault("generator.dictionary", "")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration. path may be empty; a .env file in the working
// directory is applied when present. The result is not validated, so callers
// can apply overrides first.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate rejects unknown drivers, scopes and log settings.
func (c Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverMemory:
	case DriverBbolt, DriverSQLite:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for the %s driver", c.Store.Driver))
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	if _, err := c.Scope(); err != nil {
		errs = append(errs, fmt.Errorf("generator.scope: %w", err))
	}
	if c.Generator.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("generator.max_attempts must be positive, got %d", c.Generator.MaxAttempts))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Scope returns the default uniqueness scope.
func (c Config) Scope() (synthgen.Scope, error) {
	return synthgen.ParseScope(c.Generator.Scope)
}
