package sandbox

import (
	"errors"
	"os"
	"os/exec"
	"sort"
	"strconv"
)

// bwrapSearchPaths are checked before $PATH so a PATH override cannot
// substitute the sandbox binary.
var bwrapSearchPaths = []string{"/usr/bin/bwrap", "/usr/local/bin/bwrap", "/bin/bwrap"}

// FindBwrap returns the bubblewrap binary to use. A non-empty configured
// path is used as is.
func FindBwrap(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", err
		}
		return configured, nil
	}
	for _, p := range bwrapSearchPaths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	if p, err := exec.LookPath("bwrap"); err == nil {
		return p, nil
	}
	return "", errors.New("bubblewrap (bwrap) is not installed")
}

// BwrapBuilder assembles the bubblewrap argument vector for one command.
// It performs no I/O.
type BwrapBuilder struct {
	WorkDir    string
	ScratchDir string
	Shell      string
	Command    string
	Env        map[string]string
	// DropCaps adds --cap-drop ALL; needed when bwrap runs as root.
	DropCaps bool
	// StatusFD, when positive, receives bwrap's JSON status stream.
	StatusFD int
	Hostname string
}

// Args returns the arguments following the bwrap binary name.
func (b BwrapBuilder) Args() []string {
	args := []string{"--die-with-parent", "--new-session"}
	if b.StatusFD > 0 {
		args = append(args, "--json-status-fd", strconv.Itoa(b.StatusFD))
	}

	args = append(args,
		"--unshare-net",
		"--unshare-pid",
		"--unshare-ipc",
		"--unshare-uts",
		"--unshare-cgroup-try",
	)
	if b.Hostname != "" {
		args = append(args, "--hostname", b.Hostname)
	}

	// Order matters: later mounts shadow earlier ones, so the working
	// directory stays visible even when it lives under /tmp.
	args = append(args,
		"--ro-bind", "/", "/",
		"--dev", "/dev",
		"--proc", "/proc",
		"--bind", b.ScratchDir, "/tmp",
		"--bind", b.WorkDir, b.WorkDir,
	)

	if b.DropCaps {
		args = append(args, "--cap-drop", "ALL")
	}

	keys := make([]string, 0, len(b.Env))
	for k := range b.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--setenv", k, b.Env[k])
	}

	return append(args, "--chdir", b.WorkDir, "--", b.Shell, "-c", b.Command)
}
