// Package config loads and validates the application configuration from a
// YAML file and environment variables via viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/jonesrussell/intentmap/internal/collision"
	"github.com/jonesrussell/intentmap/internal/fetcher"
	"github.com/jonesrussell/intentmap/internal/frontier"
	"github.com/jonesrussell/intentmap/internal/logger"
	"github.com/jonesrussell/intentmap/internal/scheduler"
)

// Defaults.
const (
	DefaultStorageDir = "./data"
	envPrefix         = "INTENTMAP"
)

// Config is the complete application configuration.
type Config struct {
	Logging   logger.Config     `mapstructure:"logging"   yaml:"logging"`
	Frontier  frontier.Config   `mapstructure:"frontier"  yaml:"frontier"`
	Scheduler scheduler.Config  `mapstructure:"scheduler" yaml:"scheduler"`
	Fetcher   fetcher.Config    `mapstructure:"fetcher"   yaml:"fetcher"`
	Collision collision.Options `mapstructure:"collision" yaml:"collision"`

	// StorageDir is where the run database lives.
	StorageDir string `mapstructure:"storage_dir" yaml:"storage_dir"`
}

// Load reads configuration from the given file (optional), environment
// variables, and defaults. Environment variables use the INTENTMAP_ prefix
// with underscores, e.g. INTENTMAP_SCHEDULER_CONCURRENCY.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("storage_dir", DefaultStorageDir)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.intentmap")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks every section, filling defaults in place.
func (c *Config) Validate() error {
	if err := c.Frontier.Validate(); err != nil {
		return fmt.Errorf("frontier config: %w", err)
	}

	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler config: %w", err)
	}

	if err := c.Collision.Validate(); err != nil {
		return fmt.Errorf("collision config: %w", err)
	}

	if c.StorageDir == "" {
		c.StorageDir = DefaultStorageDir
	}

	return nil
}
