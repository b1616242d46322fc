package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	// FileName is the base configuration file.
	FileName = "sync2smugmug.conf"

	// OverrideFileName is the personal override file, typically kept out
	// of version control. Values in it win over the base file.
	OverrideFileName = "sync2smugmug.my.conf"
)

// Load reads the configuration files sitting alongside the executable.
// Both files are optional; the override file is decoded on top of the
// base file. Validation is left to the command layer so CLI flags can
// fill in missing values first.
func Load() (*Config, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("config: locating executable: %w", err)
	}

	return LoadDir(filepath.Dir(exe))
}

// LoadDir reads the configuration files from the given directory.
// Unknown keys are fatal with "did you mean?" suggestions: silently
// ignoring a typo in a config file leads to hard-to-debug behavior.
func LoadDir(dir string) (*Config, error) {
	cfg := Default()

	for _, name := range []string{FileName, OverrideFileName} {
		p := filepath.Join(dir, name)

		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}

		md, err := toml.DecodeFile(p, cfg)
		if err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", p, err)
		}

		if err := checkUnknownKeys(p, &md); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}
