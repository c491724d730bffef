// Package config loads and validates the application configuration.
package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Version is the current application version, set at build time.
var Version = "dev"

const appDir = "rowingmodel"

type (
	// Config holds all application settings.
	Config struct {
		BotToken         string        `mapstructure:"bot_token"`
		DataDir          string        `mapstructure:"data_dir"`
		LogFile          string        `mapstructure:"log_file"`
		HealthAddr       string        `mapstructure:"health_addr"`
		SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
		SnapshotKeep     int           `mapstructure:"snapshot_keep"`
		Debug            bool          `mapstructure:"debug"`
	}

	// Option configures a Config value.
	Option func(*Config) error
)

// New builds a Config from the given options and validates it.
func New(opts ...Option) (*Config, error) {
	c := &Config{}

	for _, opt := range opts {
		err := opt(c)
		if err != nil {
			return nil, err
		}
	}

	err := c.validate()
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) validate() error {
	// The bot cannot function at all without a token, so this is fatal at
	// startup rather than degraded at runtime.
	if c.BotToken == "" {
		return errBotTokenMissing
	}

	return nil
}

// SnapshotDBPath is the location of the Bolt snapshot database.
func (c *Config) SnapshotDBPath() string {
	return filepath.Join(c.DataDir, "snapshots.db")
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	return xdg.ConfigFile(filepath.Join(appDir, "config.yaml"))
}

func defaultDataDir() string {
	return filepath.Join(xdg.DataHome, appDir)
}

func defaultLogFile() string {
	return filepath.Join(xdg.StateHome, appDir, "rowingmodel.log")
}
