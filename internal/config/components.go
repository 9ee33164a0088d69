package config

import (
	"sort"
	"time"

	"github.com/xdg/warden/internal/audit"
	"github.com/xdg/warden/internal/clog"
	"github.com/xdg/warden/internal/policy"
	"github.com/xdg/warden/internal/sandbox"
	"github.com/xdg/warden/internal/supervisor"
)

// The accessors below assume a Config returned by Load: validated, with
// defaults applied.

// SupervisorConfig returns the execution bounds.
func (c *Config) SupervisorConfig() supervisor.Config {
	def, _ := time.ParseDuration(c.Engine.DefaultTimeout)
	ceiling, _ := time.ParseDuration(c.Engine.MaxTimeout)
	return supervisor.Config{
		DefaultTimeout: def,
		MaxTimeout:     ceiling,
		MaxOutputBytes: c.Engine.MaxOutputBytes,
	}
}

// SandboxConfig returns the launcher settings.
func (c *Config) SandboxConfig() sandbox.Config {
	setup, _ := time.ParseDuration(c.Sandbox.SetupTimeout)
	fsize, _ := parseSize(c.Sandbox.Limits.MaxFileSize, "")
	mem, _ := parseSize(c.Sandbox.Limits.MaxMemory, "")
	return sandbox.Config{
		BwrapPath:    c.Sandbox.BwrapPath,
		Shell:        c.Sandbox.Shell,
		RuntimeDir:   c.Sandbox.RuntimeDir,
		PathEnv:      c.Sandbox.EnvPath,
		SetupTimeout: setup,
		Limits: sandbox.Limits{
			MaxFileSize:   fsize,
			MaxOpenFiles:  c.Sandbox.Limits.MaxOpenFiles,
			MaxProcesses:  c.Sandbox.Limits.MaxProcesses,
			MaxMemory:     mem,
			MaxCPUSeconds: c.Sandbox.Limits.MaxCPUSeconds,
		},
	}
}

// AuditConfig returns the audit backend settings.
func (c *Config) AuditConfig() audit.Config {
	return audit.Config{
		Store:       c.Audit.Store,
		Path:        c.Audit.Path,
		Hash:        c.Audit.Hash,
		Compression: c.Audit.Compression,
		Trail:       c.Audit.Trail,
	}
}

// PolicyStore resolves the configured policies on top of the built-ins.
func (c *Config) PolicyStore() (*policy.Store, error) {
	return policy.NewStore(policyDefinitions(c.Policies))
}

// LogLevel returns the configured level.
func (c *Config) LogLevel() clog.Level {
	return clog.ParseLevel(c.Log.Level)
}

// policyDefinitions converts configured policies, sorted by ID so errors
// are reported deterministically.
func policyDefinitions(policies map[string]PolicyConfig) []policy.Definition {
	ids := make([]string, 0, len(policies))
	for id := range policies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	defs := make([]policy.Definition, 0, len(ids))
	for _, id := range ids {
		p := policies[id]
		d := policy.Definition{
			ID:          id,
			Description: p.Description,
			Extends:     p.Extends,
			Allow:       p.Allow,
			Deny:        p.Deny,
		}
		if cc := p.Concurrency; cc != nil {
			conc := policy.Concurrency{Mode: policy.Mode(cc.Mode), Limit: cc.Limit}
			if conc.Mode == policy.ModeSequential {
				conc = policy.Sequential()
			}
			d.Concurrency = &conc
		}
		defs = append(defs, d)
	}
	return defs
}
