// Package config loads the sync2smugmug configuration: a base TOML file
// and a personal override file sitting alongside the executable, with
// CLI flags applied on top by the command layer.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/smugsync/smugsync/internal/policy"
)

// Config is the flat configuration surface. TOML keys match the CLI
// flag names one to one.
type Config struct {
	Sync              string `toml:"sync"`
	BaseDir           string `toml:"base_dir"`
	Account           string `toml:"account"`
	ConsumerKey       string `toml:"consumer_key"`
	ConsumerSecret    string `toml:"consumer_secret"`
	AccessToken       string `toml:"access_token"`
	AccessTokenSecret string `toml:"access_token_secret"`

	MacPhotosLibraryLocation string `toml:"mac_photos_library_location"`

	ForceRefresh bool `toml:"force_refresh"`
	DryRun       bool `toml:"dry_run"`
	TestUpload   bool `toml:"test_upload"`

	LogLevel string `toml:"log_level"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		LogLevel: "info",
	}
}

// Action resolves the configured sync preset.
func (c *Config) Action() (policy.Action, error) {
	return policy.Preset(c.Sync)
}

// validLogLevels are the accepted --log_level values.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the fully merged configuration. All problems are
// reported at once so the user fixes the file in one pass.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Sync == "" {
		errs = append(errs, errors.New("config: sync preset is required"))
	} else if _, err := policy.Preset(cfg.Sync); err != nil {
		errs = append(errs, err)
	}

	switch {
	case cfg.BaseDir == "":
		errs = append(errs, errors.New("config: base_dir is required"))
	default:
		info, err := os.Stat(cfg.BaseDir)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: base_dir %q: %w", cfg.BaseDir, err))
		} else if !info.IsDir() {
			errs = append(errs, fmt.Errorf("config: base_dir %q is not a directory", cfg.BaseDir))
		}
	}

	for _, field := range []struct {
		key   string
		value string
	}{
		{"account", cfg.Account},
		{"consumer_key", cfg.ConsumerKey},
		{"consumer_secret", cfg.ConsumerSecret},
		{"access_token", cfg.AccessToken},
		{"access_token_secret", cfg.AccessTokenSecret},
	} {
		if field.value == "" {
			errs = append(errs, fmt.Errorf("config: %s is required", field.key))
		}
	}

	if cfg.LogLevel != "" && !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("config: invalid log_level %q (choose one of: debug, info, warn, error)", cfg.LogLevel))
	}

	return errors.Join(errs...)
}
