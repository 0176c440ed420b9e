// Package config loads stacmeta tool configuration from the config file,
// environment, and defaults via viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for stacmeta
type Config struct {
	// DataDir is the root of the test-data tree fixture commands operate on.
	DataDir string `mapstructure:"data_dir"`
	// Manifest is the path of the external fixture manifest, relative to
	// DataDir unless absolute.
	Manifest string `mapstructure:"manifest"`
	// SignEndpoint overrides the signed-URL provider endpoint. Empty selects
	// the built-in Planetary Computer endpoint.
	SignEndpoint string `mapstructure:"sign_endpoint"`
}

var defaultConfig = Config{
	DataDir:  "tests/data",
	Manifest: "external-data.yaml",
}

// Load reads configuration from $STACMETA_HOME/config.yaml (when present)
// and STACMETA_* environment variables, over the built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("data_dir", defaultConfig.DataDir)
	v.SetDefault("manifest", defaultConfig.Manifest)
	v.SetDefault("sign_endpoint", defaultConfig.SignEndpoint)

	v.SetEnvPrefix("STACMETA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if home, err := StacmetaHome(); err == nil {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(home)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// StacmetaHome returns the stacmeta home directory
func StacmetaHome() (string, error) {
	// Check environment variable first
	if home := os.Getenv("STACMETA_HOME"); home != "" {
		return home, nil
	}

	// Use standard dev tool convention: ~/.stacmeta
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %v", err)
	}

	return filepath.Join(homeDir, ".stacmeta"), nil
}

// EnsureStacmetaHome creates the stacmeta home directory if it doesn't exist
func EnsureStacmetaHome() (string, error) {
	homeDir, err := StacmetaHome()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(homeDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create stacmeta home directory: %v", err)
	}

	return homeDir, nil
}
