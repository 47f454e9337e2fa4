package config

import (
	"os"
	"path/filepath"
)

// HomePath returns the root directory for Arbor's own data (schedule
// entry files, local logs). It uses $ARBOR_PATH if set, otherwise
// defaults to ~/.arbor.
func HomePath() string {
	if v := os.Getenv("ARBOR_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".arbor")
	}
	return filepath.Join(home, ".arbor")
}

// ConfigPath returns the path to Arbor's config file.
func ConfigPath() string {
	return filepath.Join(HomePath(), "config.jsonc")
}
