package config

import (
	"path/filepath"

	"github.com/xdg/warden/internal/audit"
	"github.com/xdg/warden/internal/clog"
	"github.com/xdg/warden/internal/policy"
	"github.com/xdg/warden/internal/sandbox"
)

// Default returns a Config with every field populated.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			DefaultTimeout: "10s",
			MaxTimeout:     "60s",
			MaxOutputBytes: 10 * 1024,
			DefaultPolicy:  policy.ReadOnly,
		},
		Sandbox: SandboxConfig{
			Backend:      "auto",
			Shell:        "/bin/sh",
			RuntimeDir:   sandbox.DefaultRuntimeDir(),
			EnvPath:      "/usr/local/bin:/usr/bin:/bin",
			SetupTimeout: "5s",
			Limits: LimitsConfig{
				MaxFileSize:   "1GiB",
				MaxOpenFiles:  1024,
				MaxCPUSeconds: 120,
			},
		},
		Audit: AuditConfig{
			Store:       audit.StoreSQLite,
			Path:        audit.DefaultPath(),
			Hash:        string(audit.DefaultAlgorithm),
			Compression: string(audit.CompressionZstd),
		},
		Server: ServerConfig{
			Socket: DefaultSocketPath(),
		},
		Log: LogConfig{
			Level: "info",
			File:  clog.DefaultLogPath(),
		},
	}
}

// DefaultSocketPath returns the daemon socket under the sandbox runtime
// directory.
func DefaultSocketPath() string {
	return filepath.Join(sandbox.DefaultRuntimeDir(), "warden.sock")
}

// applyDefaults fills every unset field of cfg from Default.
func applyDefaults(cfg *Config) {
	def := Default()

	setString(&cfg.Engine.DefaultTimeout, def.Engine.DefaultTimeout)
	setString(&cfg.Engine.MaxTimeout, def.Engine.MaxTimeout)
	if cfg.Engine.MaxOutputBytes == 0 {
		cfg.Engine.MaxOutputBytes = def.Engine.MaxOutputBytes
	}
	setString(&cfg.Engine.DefaultPolicy, def.Engine.DefaultPolicy)

	setString(&cfg.Sandbox.Backend, def.Sandbox.Backend)
	setString(&cfg.Sandbox.Shell, def.Sandbox.Shell)
	setString(&cfg.Sandbox.RuntimeDir, def.Sandbox.RuntimeDir)
	setString(&cfg.Sandbox.EnvPath, def.Sandbox.EnvPath)
	setString(&cfg.Sandbox.SetupTimeout, def.Sandbox.SetupTimeout)
	if cfg.Sandbox.Limits == (LimitsConfig{}) {
		cfg.Sandbox.Limits = def.Sandbox.Limits
	}

	setString(&cfg.Audit.Store, def.Audit.Store)
	setString(&cfg.Audit.Path, def.Audit.Path)
	setString(&cfg.Audit.Hash, def.Audit.Hash)
	setString(&cfg.Audit.Compression, def.Audit.Compression)

	setString(&cfg.Server.Socket, def.Server.Socket)

	setString(&cfg.Log.Level, def.Log.Level)
	setString(&cfg.Log.File, def.Log.File)
}

func setString(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

// defaultConfigTemplate is written by WriteDefault. Everything is
// commented out so built-in defaults stay in effect until changed.
const defaultConfigTemplate = `# warden configuration
# Uncomment and edit settings to override the built-in defaults.

# engine:
#   default_timeout: 10s      # used when a request sets no timeout
#   max_timeout: 60s          # hard ceiling on any timeout
#   max_output_bytes: 10240   # per stream; more is discarded and flagged truncated
#   default_policy: readonly

# sandbox:
#   backend: auto             # auto or bwrap; there is no unsandboxed mode
#   bwrap_path: ""            # default: bwrap on PATH
#   shell: /bin/sh
#   runtime_dir: ""           # scratch space and locks; default $XDG_RUNTIME_DIR/warden
#   env_path: /usr/local/bin:/usr/bin:/bin
#   setup_timeout: 5s
#   limits:
#     max_file_size: 1GiB
#     max_open_files: 1024
#     max_processes: 0        # 0 keeps the inherited limit
#     max_memory: 0
#     max_cpu_seconds: 120

# audit:
#   store: sqlite             # sqlite or memory
#   path: ""                  # default $XDG_STATE_HOME/warden/audit.db
#   hash: sha256              # sha256 or blake3
#   compression: zstd         # zstd or none
#   trail: ""                 # optional plain-text log of every entry

# Built-in policies: readonly, default, build. Define more here.
# policies:
#   docs:
#     description: Read-only plus markdown tooling
#     extends: readonly
#     allow:
#       - '^markdownlint\s'
#     deny:
#       - '--fix'
#     concurrency:
#       mode: parallel        # parallel or sequential
#       limit: 2

# server:
#   socket: ""                # default $XDG_RUNTIME_DIR/warden/warden.sock

# log:
#   level: info               # debug, info, warn, error
#   file: ""                  # default $XDG_STATE_HOME/warden/warden.log
`
