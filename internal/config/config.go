// Package config loads labelstream settings from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Backend names accepted by store.backend.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// PathEnv names the variable holding the config file path.
const PathEnv = "LABELSTREAM_CONFIG"

// Config holds all labelstream configuration.
type Config struct {
	Store StoreConfig `yaml:"store"`
	Lock  LockConfig  `yaml:"lock"`
	Retry RetryConfig `yaml:"retry"`
	Log   LogConfig   `yaml:"log"`
}

// StoreConfig selects and locates the persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend" env:"LABELSTREAM_STORE_BACKEND" env-default:"sqlite"`
	// Dir is the base directory of the flat-file backend.
	Dir string `yaml:"dir" env:"LABELSTREAM_STORE_DIR" env-default:"data"`
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path" env:"LABELSTREAM_DB_PATH" env-default:"labelstream.db"`
}

type LockConfig struct {
	WaitTimeout time.Duration `yaml:"wait_timeout" env:"LABELSTREAM_LOCK_WAIT_TIMEOUT" env-default:"5s"`
}

type RetryConfig struct {
	Delay time.Duration `yaml:"delay" env:"LABELSTREAM_RETRY_DELAY" env-default:"50ms"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LABELSTREAM_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LABELSTREAM_LOG_FORMAT" env-default:"console"`
}

// Load reads configuration. path, or LABELSTREAM_CONFIG when path is empty,
// names an optional YAML file; environment variables override its values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(PathEnv)
	}

	cfg := &Config{}
	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.DBPath == "" {
			return fmt.Errorf("store.db_path is required for the sqlite backend")
		}
	case BackendFile:
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required for the file backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}

	if c.Lock.WaitTimeout <= 0 {
		return fmt.Errorf("lock.wait_timeout must be positive")
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("retry.delay must not be negative")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}
