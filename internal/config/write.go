package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// WriteDefault writes the commented default template to path unless a file
// already exists there. It reports whether the file was created. The file
// is written 0600 and its directory 0700.
func WriteDefault(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0o600); err != nil {
		return false, fmt.Errorf("write default config: %w", err)
	}
	return true, nil
}
