package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/penwyp/claudeteam/errors"
	"github.com/spf13/viper"
)

// Loader loads configuration from file and environment with defaults as
// the base layer
type Loader struct {
	v       *viper.Viper
	cfgFile string
}

// NewLoader creates a new configuration loader. cfgFile may be empty to
// search the default paths.
func NewLoader(cfgFile string) *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CLAUDETEAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, cfgFile: cfgFile}
}

// Load merges defaults, config file, and environment into one Config
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.cfgFile != "" {
		l.v.SetConfigFile(os.ExpandEnv(l.cfgFile))
	} else {
		for _, path := range ConfigPaths() {
			expanded := os.ExpandEnv(path)
			if _, err := os.Stat(expanded); err == nil {
				l.v.SetConfigFile(expanded)
				break
			}
		}
	}

	if l.v.ConfigFileUsed() != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expandPaths(cfg)

	if err := NewValidator().Validate(cfg); err != nil {
		return nil, errors.NewConfigError("configuration validation failed", err)
	}

	return cfg, nil
}

// expandPaths expands environment variables in path-valued fields
func expandPaths(cfg *Config) {
	home, err := os.UserHomeDir()
	if err == nil {
		os.Setenv("HOME", home)
	}
	cfg.App.LogFile = os.ExpandEnv(cfg.App.LogFile)
	cfg.Store.Path = os.ExpandEnv(cfg.Store.Path)
	cfg.Cache.SnapshotDir = os.ExpandEnv(cfg.Cache.SnapshotDir)
}
