package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the codx settings.
// Priority: flags > CODX_* env vars > ~/.codx/settings.json > defaults.
type Config struct {
	PackageManager string        `mapstructure:"package_manager"`
	RegistryURL    string        `mapstructure:"registry_url"`
	History        bool          `mapstructure:"history"`
	HistoryDB      string        `mapstructure:"history_db"`
	LogLevel       string        `mapstructure:"log_level"`
	AssumeYes      bool          `mapstructure:"assume_yes"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

func codxDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codx"
	}
	return filepath.Join(home, ".codx")
}

func defaultSettingsPath() string {
	return filepath.Join(codxDir(), "settings.json")
}

// newViper layers defaults, the settings file at path (ignored if missing)
// and CODX_* environment variables. Flags are bound by the commands.
func newViper(path string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("package_manager", "")
	v.SetDefault("registry_url", "https://registry.npmjs.org")
	v.SetDefault("history", true)
	v.SetDefault("history_db", filepath.Join(codxDir(), "history.db"))
	v.SetDefault("log_level", "warn")
	v.SetDefault("assume_yes", false)
	v.SetDefault("command_timeout", "0s")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
		}
	}

	// CODX_HISTORY_DB maps to "history_db".
	v.SetEnvPrefix("CODX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v, nil
}

func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode settings: %w", err)
	}
	return cfg, nil
}
