package config

import (
	"os"
	"path/filepath"
)

// SyncboardPath returns the root directory for syncboard data.
// It uses $SYNCBOARD_PATH if set, otherwise defaults to ~/.syncboard.
func SyncboardPath() string {
	if v := os.Getenv("SYNCBOARD_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".syncboard")
	}
	return filepath.Join(home, ".syncboard")
}

// ConfigPath returns the path to the syncboard config file.
func ConfigPath() string {
	return filepath.Join(SyncboardPath(), "config.jsonc")
}
