// Package config provides the warden configuration file: engine bounds,
// sandbox settings, audit storage, user-defined policies and logging.
// Types map to YAML; a .json or .jsonc file with the same shape is also
// accepted.
package config

// Config is the top-level configuration, stored at
// ~/.config/warden/config.yaml by default.
type Config struct {
	Engine   EngineConfig            `yaml:"engine,omitempty"`
	Sandbox  SandboxConfig           `yaml:"sandbox,omitempty"`
	Audit    AuditConfig             `yaml:"audit,omitempty"`
	Policies map[string]PolicyConfig `yaml:"policies,omitempty"`
	Server   ServerConfig            `yaml:"server,omitempty"`
	Log      LogConfig               `yaml:"log,omitempty"`
}

// EngineConfig bounds every execution.
type EngineConfig struct {
	DefaultTimeout string `yaml:"default_timeout,omitempty"`
	MaxTimeout     string `yaml:"max_timeout,omitempty"`
	MaxOutputBytes int    `yaml:"max_output_bytes,omitempty"`
	DefaultPolicy  string `yaml:"default_policy,omitempty"`
}

// SandboxConfig configures the isolation backend.
type SandboxConfig struct {
	Backend      string       `yaml:"backend,omitempty"`
	BwrapPath    string       `yaml:"bwrap_path,omitempty"`
	Shell        string       `yaml:"shell,omitempty"`
	RuntimeDir   string       `yaml:"runtime_dir,omitempty"`
	EnvPath      string       `yaml:"env_path,omitempty"`
	SetupTimeout string       `yaml:"setup_timeout,omitempty"`
	Limits       LimitsConfig `yaml:"limits,omitempty"`
}

// LimitsConfig holds per-process resource limits. Sizes accept units
// ("512MiB", "1GB").
type LimitsConfig struct {
	MaxFileSize   string `yaml:"max_file_size,omitempty"`
	MaxOpenFiles  uint64 `yaml:"max_open_files,omitempty"`
	MaxProcesses  uint64 `yaml:"max_processes,omitempty"`
	MaxMemory     string `yaml:"max_memory,omitempty"`
	MaxCPUSeconds uint64 `yaml:"max_cpu_seconds,omitempty"`
}

// AuditConfig selects the audit store.
type AuditConfig struct {
	Store       string `yaml:"store,omitempty"`
	Path        string `yaml:"path,omitempty"`
	Hash        string `yaml:"hash,omitempty"`
	Compression string `yaml:"compression,omitempty"`
	Trail       string `yaml:"trail,omitempty"`
}

// PolicyConfig defines or extends a policy. The map key is its ID.
type PolicyConfig struct {
	Description string             `yaml:"description,omitempty"`
	Extends     string             `yaml:"extends,omitempty"`
	Allow       []string           `yaml:"allow,omitempty"`
	Deny        []string           `yaml:"deny,omitempty"`
	Concurrency *ConcurrencyConfig `yaml:"concurrency,omitempty"`
}

// ConcurrencyConfig is a policy's concurrency class.
type ConcurrencyConfig struct {
	Mode  string `yaml:"mode,omitempty"`
	Limit int    `yaml:"limit,omitempty"`
}

// ServerConfig configures the daemon.
type ServerConfig struct {
	Socket string `yaml:"socket,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"`
}
