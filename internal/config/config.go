// Package config loads CLI settings from defaults, an optional YAML file,
// EQUERY_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/equery/internal/engine"
	"github.com/roach88/equery/internal/logger"
)

// EnvPrefix is the environment variable prefix. EQUERY_ENGINE_WORKERS sets
// engine.workers.
const EnvPrefix = "EQUERY"

// Config is the resolved configuration.
type Config struct {
	Format string       `mapstructure:"format"`
	Log    LogConfig    `mapstructure:"log"`
	Engine EngineConfig `mapstructure:"engine"`
	Store  StoreConfig  `mapstructure:"store"`
}

// LogConfig selects the diagnostic logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig maps onto engine options.
type EngineConfig struct {
	Workers          int  `mapstructure:"workers"`
	MaxRows          int  `mapstructure:"max_rows"`
	PlanCacheSize    int  `mapstructure:"plan_cache_size"`
	StrictProjection bool `mapstructure:"strict_projection"`
}

// StoreConfig locates the collection database.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// Keys bound to flags and environment variables.
const (
	KeyFormat           = "format"
	KeyLogLevel         = "log.level"
	KeyLogFormat        = "log.format"
	KeyWorkers          = "engine.workers"
	KeyMaxRows          = "engine.max_rows"
	KeyPlanCacheSize    = "engine.plan_cache_size"
	KeyStrictProjection = "engine.strict_projection"
	KeyStorePath        = "store.path"
)

// DefaultStorePath is the collection database used when none is configured.
const DefaultStorePath = "equery.db"

// New returns a viper instance with defaults and environment lookup set up.
// Every key has a default, so AutomaticEnv covers all of them on Unmarshal.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyFormat, "text")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyWorkers, 1)
	v.SetDefault(KeyMaxRows, engine.DefaultMaxRows)
	v.SetDefault(KeyPlanCacheSize, engine.DefaultPlanCacheSize)
	v.SetDefault(KeyStrictProjection, false)
	v.SetDefault(KeyStorePath, DefaultStorePath)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file (if not empty) into v and unmarshals the result.
// A missing file named explicitly is an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	switch c.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("format: must be text or json, got %q", c.Format))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format))
	}
	if c.Engine.Workers < 0 {
		errs = append(errs, fmt.Errorf("engine.workers: must be non-negative, got %d", c.Engine.Workers))
	}
	if c.Engine.MaxRows < 0 {
		errs = append(errs, fmt.Errorf("engine.max_rows: must be non-negative, got %d", c.Engine.MaxRows))
	}
	if c.Engine.PlanCacheSize < 0 {
		errs = append(errs, fmt.Errorf("engine.plan_cache_size: must be non-negative, got %d", c.Engine.PlanCacheSize))
	}
	return errors.Join(errs...)
}

// EngineOptions converts the engine section to engine options.
func (c *Config) EngineOptions() []engine.EngineOption {
	return []engine.EngineOption{
		engine.WithWorkers(c.Engine.Workers),
		engine.WithMaxRows(c.Engine.MaxRows),
		engine.WithPlanCacheSize(c.Engine.PlanCacheSize),
		engine.WithStrictProjection(c.Engine.StrictProjection),
	}
}

// Logger returns the logger config.
func (c *Config) Logger() logger.Config {
	return logger.Config{Level: c.Log.Level, Format: c.Log.Format}
}
