// Package sandbox starts commands inside an OS isolation boundary.
//
// Every launched process sees the whole filesystem read-only except one
// writable working directory, gets a private empty /tmp, has no network,
// runs in its own PID, IPC and UTS namespaces with no elevated
// capabilities, and dies with its supervisor. On Linux the boundary is
// bubblewrap; elsewhere every launch fails with ErrSandboxUnavailable.
// There is no unsandboxed fallback.
//
// The package does not interpret output or enforce timeouts. Callers read
// the Handle's output streams, wait for it, kill it, and release it.
package sandbox

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var (
	// ErrSandboxUnavailable means the isolation primitive cannot be set up
	// on this host. It is fatal for the request.
	ErrSandboxUnavailable = errors.New("sandbox unavailable")
	// ErrWorkdirBusy means another in-flight command owns the working
	// directory.
	ErrWorkdirBusy = errors.New("working directory is in use by another command")
)

// Spec describes one command to launch.
type Spec struct {
	// Command is passed to the shell as a single -c argument.
	Command string
	// WorkDir is the only writable path and the initial directory.
	WorkDir string
	// Limits overrides the launcher's default resource limits when non-zero.
	Limits Limits
}

// ExitStatus is how a sandboxed process ended.
type ExitStatus struct {
	Code     int
	Signaled bool
	Detail   string
}

// Handle is a running sandboxed process.
//
// Stdout and Stderr must be drained by the caller. Release must be called
// exactly once the process is no longer needed; it removes scratch storage
// and frees the working directory.
type Handle interface {
	Pid() int
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait blocks until the process exits. The error is non-nil only when
	// waiting itself failed.
	Wait() (ExitStatus, error)
	// Kill sends SIGKILL to the whole process group.
	Kill() error
	// CloseOutput closes the read ends of the output streams, unblocking
	// readers held up by stray descendants.
	CloseOutput() error
	Release() error
}

// Launcher constructs and starts sandboxed processes.
type Launcher interface {
	Name() string
	// Available returns nil or an error wrapping ErrSandboxUnavailable.
	Available() error
	Launch(ctx context.Context, spec Spec) (Handle, error)
}

// Config configures a Launcher.
type Config struct {
	// BwrapPath overrides the bubblewrap lookup.
	BwrapPath string
	// Shell runs the command string. Defaults to /bin/sh.
	Shell string
	// RuntimeDir holds scratch directories and workdir lock files.
	RuntimeDir string
	// PathEnv is PATH inside the sandbox.
	PathEnv string
	// Limits are applied to every process unless a Spec overrides them.
	Limits Limits
	// SetupTimeout bounds how long namespace setup may take.
	SetupTimeout time.Duration
}

const (
	defaultShell        = "/bin/sh"
	defaultPathEnv      = "/usr/local/bin:/usr/bin:/bin"
	defaultSetupTimeout = 5 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Shell == "" {
		c.Shell = defaultShell
	}
	if c.PathEnv == "" {
		c.PathEnv = defaultPathEnv
	}
	if c.RuntimeDir == "" {
		c.RuntimeDir = DefaultRuntimeDir()
	}
	if c.SetupTimeout <= 0 {
		c.SetupTimeout = defaultSetupTimeout
	}
	return c
}

// DefaultRuntimeDir returns $XDG_RUNTIME_DIR/warden, or a per-user
// directory under the system temp dir.
func DefaultRuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "warden")
	}
	return filepath.Join(os.TempDir(), "warden-"+strconv.Itoa(os.Getuid()))
}

// sandboxEnv is the complete environment seen by sandboxed commands.
func sandboxEnv(pathEnv string) map[string]string {
	return map[string]string{
		"HOME":   "/tmp",
		"LANG":   "C.UTF-8",
		"PATH":   pathEnv,
		"TMPDIR": "/tmp",
	}
}
