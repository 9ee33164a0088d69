package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xdg/warden/internal/pathutil"
)

// Dir returns the warden configuration directory: $XDG_CONFIG_HOME/warden,
// or ~/.config/warden.
func Dir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = "~/.config"
	}
	return filepath.Join(pathutil.ExpandHome(base), "warden")
}

// EnsureDir creates the configuration directory with user-only access.
func EnsureDir() error {
	if err := os.MkdirAll(Dir(), 0o700); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	return nil
}

// Path returns the default configuration file path.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}
