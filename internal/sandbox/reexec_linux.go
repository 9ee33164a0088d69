//go:build linux

package sandbox

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

// initEnvVar marks a re-executed warden binary as the sandbox init helper.
// Its value is the JSON-encoded Limits.
const initEnvVar = "_WARDEN_SANDBOX_INIT"

// initFailureExit is the helper's exit code when it cannot start bwrap.
const initFailureExit = 125

// Function variables so tests can observe the syscalls. The syscall
// package's Setrlimit is used so the runtime does not restore its saved
// RLIMIT_NOFILE on exec.
var (
	setrlimit = syscall.Setrlimit
	getrlimit = syscall.Getrlimit
	prctl     = unix.Prctl
	execve    = unix.Exec
)

// MaybeInit turns the current process into the sandbox init helper when it
// was started by a Launcher, and never returns in that case. It must be the
// first call in main, and in TestMain of packages that launch sandboxes.
//
// The helper applies resource limits, disables core dumps, and then
// replaces itself with bubblewrap (os.Args[1:]), so the limits are
// inherited by everything inside the sandbox.
func MaybeInit() {
	raw, ok := os.LookupEnv(initEnvVar)
	if !ok {
		return
	}
	runtime.LockOSThread()

	if err := runInit(raw, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "warden sandbox init: %v\n", err)
		os.Exit(initFailureExit)
	}
}

func runInit(raw string, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("no command to execute")
	}
	if err := os.Unsetenv(initEnvVar); err != nil {
		return err
	}

	var lim Limits
	if err := json.Unmarshal([]byte(raw), &lim); err != nil {
		return fmt.Errorf("decode limits: %w", err)
	}
	if err := applyLimits(lim); err != nil {
		return err
	}
	if err := setrlimit(unix.RLIMIT_CORE, &syscall.Rlimit{Cur: 0, Max: 0}); err != nil {
		return fmt.Errorf("setrlimit(RLIMIT_CORE): %w", err)
	}

	// PR_SET_NO_NEW_PRIVS would disable a setuid bwrap, which then cannot
	// create namespaces. bwrap sets it for the sandboxed child itself.
	if !isSetuid(argv[0]) {
		if err := prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
			return fmt.Errorf("prctl(PR_SET_NO_NEW_PRIVS): %w", err)
		}
	}

	return execve(argv[0], argv, os.Environ())
}

type rlimitEntry struct {
	name     string
	resource int
	value    uint64
}

func (l Limits) entries() []rlimitEntry {
	return []rlimitEntry{
		{"RLIMIT_FSIZE", unix.RLIMIT_FSIZE, l.MaxFileSize},
		{"RLIMIT_NOFILE", unix.RLIMIT_NOFILE, l.MaxOpenFiles},
		{"RLIMIT_NPROC", unix.RLIMIT_NPROC, l.MaxProcesses},
		{"RLIMIT_AS", unix.RLIMIT_AS, l.MaxMemory},
		{"RLIMIT_CPU", unix.RLIMIT_CPU, l.MaxCPUSeconds},
	}
}

// applyLimits lowers each configured limit. A value above the current hard
// limit is clamped to it, since raising requires privilege.
func applyLimits(l Limits) error {
	for _, e := range l.entries() {
		if e.value == 0 {
			continue
		}
		var cur syscall.Rlimit
		if err := getrlimit(e.resource, &cur); err != nil {
			return fmt.Errorf("getrlimit(%s): %w", e.name, err)
		}
		v := min(e.value, cur.Max)
		if err := setrlimit(e.resource, &syscall.Rlimit{Cur: v, Max: v}); err != nil {
			return fmt.Errorf("setrlimit(%s): %w", e.name, err)
		}
	}
	return nil
}

func isSetuid(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode()&os.ModeSetuid != 0
}
