package cmd

import (
	"fmt"

	"github.com/xdg/warden/internal/audit"
	"github.com/xdg/warden/internal/clog"
	"github.com/xdg/warden/internal/config"
	"github.com/xdg/warden/internal/engine"
	"github.com/xdg/warden/internal/sandbox"
	"github.com/xdg/warden/internal/supervisor"
)

// loadConfig loads the file selected by --config and configures logging
// from it. daemon sends log output to the file only.
func loadConfig(daemon bool) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel()
	if debugFlag {
		level = clog.LevelDebug
	}
	if err := clog.Configure(cfg.Log.File, level, daemon); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	return cfg, nil
}

// openEngine wires an engine from cfg. The caller closes its recorder.
func openEngine(cfg *config.Config) (*engine.Engine, error) {
	policies, err := cfg.PolicyStore()
	if err != nil {
		return nil, err
	}
	rec, err := audit.Open(cfg.AuditConfig())
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	eng, err := engine.New(engine.Config{
		Policies:   policies,
		Launcher:   sandbox.New(cfg.SandboxConfig()),
		Supervisor: supervisor.New(cfg.SupervisorConfig()),
		Recorder:   rec,
	})
	if err != nil {
		_ = rec.Close()
		return nil, err
	}
	return eng, nil
}

// openRecorder opens the configured audit log for reading. An in-memory
// store has nothing to read from another process.
func openRecorder(cfg *config.Config) (*audit.Recorder, error) {
	if cfg.Audit.Store == audit.StoreMemory {
		return nil, fmt.Errorf("audit store is %q: entries are not persisted (use --remote to query a running daemon)", audit.StoreMemory)
	}
	rec, err := audit.Open(cfg.AuditConfig())
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return rec, nil
}

func closeRecorder(rec *audit.Recorder) {
	if err := rec.Close(); err != nil {
		clog.Warn("close audit log: %v", err)
	}
}
