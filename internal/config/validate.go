package config

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/xdg/warden/internal/audit"
	"github.com/xdg/warden/internal/clog"
	"github.com/xdg/warden/internal/policy"
	"github.com/xdg/warden/internal/supervisor"
)

// Validate checks every field of cfg and reports the first invalid one by
// its path, e.g. "engine.max_timeout: invalid duration". Unset fields are
// valid.
func Validate(cfg *Config) error {
	if err := validateEngine(&cfg.Engine); err != nil {
		return err
	}
	if err := validateSandbox(&cfg.Sandbox); err != nil {
		return err
	}
	if err := validateAudit(&cfg.Audit); err != nil {
		return err
	}
	if err := validatePolicies(cfg.Policies); err != nil {
		return err
	}
	if cfg.Log.Level != "" {
		if _, err := clog.LookupLevel(cfg.Log.Level); err != nil {
			return fmt.Errorf("log.level: invalid value %q, must be one of: debug, info, warn, error", cfg.Log.Level)
		}
	}
	return nil
}

func validateEngine(e *EngineConfig) error {
	var def, ceiling time.Duration
	var err error
	if e.DefaultTimeout != "" {
		if def, err = positiveDuration(e.DefaultTimeout, "engine.default_timeout"); err != nil {
			return err
		}
	}
	if e.MaxTimeout != "" {
		if ceiling, err = positiveDuration(e.MaxTimeout, "engine.max_timeout"); err != nil {
			return err
		}
	}
	if ceiling > supervisor.MaxTimeout {
		return fmt.Errorf("engine.max_timeout: %s exceeds the hard limit of %s", ceiling, supervisor.MaxTimeout)
	}
	if def > supervisor.MaxTimeout {
		return fmt.Errorf("engine.default_timeout: %s exceeds the hard limit of %s", def, supervisor.MaxTimeout)
	}
	if def > 0 && ceiling > 0 && def > ceiling {
		return fmt.Errorf("engine.default_timeout: %s exceeds engine.max_timeout %s", def, ceiling)
	}
	if e.MaxOutputBytes < 0 {
		return fmt.Errorf("engine.max_output_bytes: must be non-negative, got %d", e.MaxOutputBytes)
	}
	return nil
}

func validateSandbox(s *SandboxConfig) error {
	switch s.Backend {
	case "", "auto", "bwrap":
	default:
		return fmt.Errorf("sandbox.backend: invalid value %q, must be one of: auto, bwrap", s.Backend)
	}
	if s.SetupTimeout != "" {
		if _, err := positiveDuration(s.SetupTimeout, "sandbox.setup_timeout"); err != nil {
			return err
		}
	}
	if _, err := parseSize(s.Limits.MaxFileSize, "sandbox.limits.max_file_size"); err != nil {
		return err
	}
	if _, err := parseSize(s.Limits.MaxMemory, "sandbox.limits.max_memory"); err != nil {
		return err
	}
	return nil
}

func validateAudit(a *AuditConfig) error {
	switch a.Store {
	case "", audit.StoreMemory, audit.StoreSQLite:
	default:
		return fmt.Errorf("audit.store: invalid value %q, must be one of: memory, sqlite", a.Store)
	}
	if _, err := audit.ParseAlgorithm(a.Hash); err != nil {
		return fmt.Errorf("audit.hash: %w", err)
	}
	if _, err := audit.ParseCompression(a.Compression); err != nil {
		return fmt.Errorf("audit.compression: %w", err)
	}
	return nil
}

func validatePolicies(policies map[string]PolicyConfig) error {
	ids := make([]string, 0, len(policies))
	for id := range policies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		p := policies[id]
		for i, pattern := range p.Allow {
			if err := validateRegex(pattern, fmt.Sprintf("policies.%s.allow[%d]", id, i)); err != nil {
				return err
			}
		}
		for i, pattern := range p.Deny {
			if err := validateRegex(pattern, fmt.Sprintf("policies.%s.deny[%d]", id, i)); err != nil {
				return err
			}
		}
		if c := p.Concurrency; c != nil {
			switch policy.Mode(c.Mode) {
			case policy.ModeSequential:
			case policy.ModeParallel:
				if c.Limit < 1 {
					return fmt.Errorf("policies.%s.concurrency.limit: must be at least 1, got %d", id, c.Limit)
				}
			default:
				return fmt.Errorf("policies.%s.concurrency.mode: invalid value %q, must be one of: parallel, sequential", id, c.Mode)
			}
		}
	}

	// Resolution catches bad IDs, cycles and redefined built-ins.
	defs := policyDefinitions(policies)
	if _, err := policy.NewStore(defs); err != nil {
		return fmt.Errorf("policies: %w", err)
	}
	return nil
}

func positiveDuration(d, field string) (time.Duration, error) {
	v, err := time.ParseDuration(d)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", field, d)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", field, d)
	}
	return v, nil
}

// parseSize parses "512MiB", "1GB" or a plain byte count. Empty and "0"
// mean unset.
func parseSize(s, field string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid size %q", field, s)
	}
	return n, nil
}

func validateRegex(pattern, field string) error {
	if pattern == "" {
		return fmt.Errorf("%s: empty pattern", field)
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("%s: invalid regex %q: %v", field, pattern, err)
	}
	return nil
}
