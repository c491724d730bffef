package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/GlebZemlyanikin/RowingModel/internal/osutil"
)

// viperKeys defines the mapping between config keys and their Viper counterparts.
const (
	keyBotToken         = "bot_token"
	keyDataDir          = "data_dir"
	keyLogFile          = "log_file"
	keyHealthAddr       = "health_addr"
	keySnapshotInterval = "snapshot_interval"
	keySnapshotKeep     = "snapshot_keep"
	keyDebug            = "debug"
)

const envPrefix = "ROWINGMODEL"

// WithViperConfig returns an Option that loads configuration from the given
// file, falling back to defaults and environment variables. A missing file
// is written back with the defaults.
func WithViperConfig(configPath string) Option {
	return func(c *Config) error {
		v := viper.New()

		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		setupViper(v)

		err := v.ReadInConfig()
		if err == nil {
			return v.Unmarshal(c)
		}

		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading config file failed: %w", err)
		}

		err = os.MkdirAll(filepath.Dir(configPath), osutil.DirPermission)
		if err != nil {
			return err
		}

		if err := v.WriteConfig(); err != nil {
			return fmt.Errorf("writing default config failed: %w", err)
		}

		return v.Unmarshal(c)
	}
}

// setupViper configures defaults and environment bindings. The bot token is
// expected to come from ROWINGMODEL_BOT_TOKEN rather than the config file.
func setupViper(v *viper.Viper) {
	v.SetDefault(keyBotToken, "")
	v.SetDefault(keyDataDir, defaultDataDir())
	v.SetDefault(keyLogFile, defaultLogFile())
	v.SetDefault(keyHealthAddr, ":8080")
	v.SetDefault(keySnapshotInterval, "10m")
	v.SetDefault(keySnapshotKeep, 10)
	v.SetDefault(keyDebug, false)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	_ = v.BindEnv(keyBotToken)
}
