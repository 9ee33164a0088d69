package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/xdg/warden/internal/clog"
	"github.com/xdg/warden/internal/pathutil"
)

// Load reads the configuration at path, or at Path() when path is empty.
// A missing file yields the defaults; when the default path is missing,
// the commented template is written there. Unset fields take defaults and
// paths have ~ expanded.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = Path()
	}
	clog.Debug("config: loading %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		clog.Debug("config: %s not found, using defaults", path)
		if _, err := WriteDefault(path); err != nil {
			clog.Warn("config: failed to create default config: %v", err)
		}
		data = nil
	}

	cfg, err := ParseFile(path, data)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	applyDefaults(cfg)
	expandPaths(cfg)
	return cfg, nil
}

func expandPaths(cfg *Config) {
	cfg.Sandbox.BwrapPath = pathutil.ExpandHome(cfg.Sandbox.BwrapPath)
	cfg.Sandbox.RuntimeDir = pathutil.ExpandHome(cfg.Sandbox.RuntimeDir)
	cfg.Audit.Path = pathutil.ExpandHome(cfg.Audit.Path)
	cfg.Audit.Trail = pathutil.ExpandHome(cfg.Audit.Trail)
	cfg.Server.Socket = pathutil.ExpandHome(cfg.Server.Socket)
	cfg.Log.File = pathutil.ExpandHome(cfg.Log.File)
}
