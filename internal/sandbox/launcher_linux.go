//go:build linux

package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/xdg/warden/internal/clog"
	"github.com/xdg/warden/internal/pathutil"
)

// statusFD is where bwrap finds its JSON status pipe: the first ExtraFile.
const statusFD = 3

// diagLimit bounds the bwrap stderr quoted in setup errors.
const diagLimit = 4096

type bwrapLauncher struct {
	cfg    Config
	claims *Claims
	caps   Capabilities
}

// New returns the bubblewrap launcher. Host capabilities are probed once.
func New(cfg Config) Launcher {
	cfg = cfg.withDefaults()
	return &bwrapLauncher{
		cfg:    cfg,
		claims: NewClaims(filepath.Join(cfg.RuntimeDir, "locks")),
		caps:   Detect(cfg),
	}
}

func (l *bwrapLauncher) Name() string { return "bwrap" }

func (l *bwrapLauncher) Available() error { return l.caps.Err() }

// Launch starts spec.Command under bubblewrap and returns once the sandbox
// namespaces are in place. Setup failures wrap ErrSandboxUnavailable.
func (l *bwrapLauncher) Launch(ctx context.Context, spec Spec) (Handle, error) {
	if err := l.Available(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(spec.Command) == "" {
		return nil, errors.New("empty command")
	}
	wd, err := pathutil.ResolveWorkdir(spec.WorkDir)
	if err != nil {
		return nil, err
	}

	release, err := l.claims.Acquire(wd)
	if err != nil {
		return nil, err
	}
	p := &Process{releaseClaim: release}

	if err := l.start(p, wd, spec); err != nil {
		_ = p.Release()
		return nil, err
	}

	if err := p.awaitSetup(ctx, l.cfg.SetupTimeout); err != nil {
		_ = p.Kill()
		st, _ := p.Wait()
		diag := p.diagnostics()
		_ = p.Release()
		if diag != "" {
			return nil, fmt.Errorf("%w (%s): %s", err, st.Detail, diag)
		}
		return nil, err
	}

	clog.Debug("sandbox: started pid=%d child=%d workdir=%s", p.Pid(), p.childPid, wd)
	return p, nil
}

func (l *bwrapLauncher) start(p *Process, wd string, spec Spec) error {
	var err error
	if p.scratch, err = newScratch(l.cfg.RuntimeDir); err != nil {
		return err
	}

	var stdoutW, stderrW, statusW *os.File
	if p.stdout, stdoutW, err = os.Pipe(); err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if p.stderr, stderrW, err = os.Pipe(); err != nil {
		_ = stdoutW.Close()
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if p.status, statusW, err = os.Pipe(); err != nil {
		_ = stdoutW.Close()
		_ = stderrW.Close()
		return fmt.Errorf("status pipe: %w", err)
	}
	defer func() {
		_ = stdoutW.Close()
		_ = stderrW.Close()
		_ = statusW.Close()
	}()

	env := sandboxEnv(l.cfg.PathEnv)
	b := BwrapBuilder{
		WorkDir:    wd,
		ScratchDir: p.scratch,
		Shell:      l.cfg.Shell,
		Command:    spec.Command,
		Env:        env,
		DropCaps:   os.Geteuid() == 0,
		StatusFD:   statusFD,
		Hostname:   "warden",
	}
	limits, err := json.Marshal(spec.Limits.Or(l.cfg.Limits))
	if err != nil {
		return fmt.Errorf("encode limits: %w", err)
	}

	// The binary re-executes itself as the init helper (see MaybeInit),
	// which applies limits and then becomes bwrap.
	cmd := exec.Command("/proc/self/exe", append([]string{l.caps.BwrapPath}, b.Args()...)...)
	cmd.Env = append(envList(env), initEnvVar+"="+string(limits))
	cmd.Dir = "/"
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.ExtraFiles = []*os.File{statusW}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:    true,
		Pdeathsig: syscall.SIGKILL,
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start sandbox helper: %v", ErrSandboxUnavailable, err)
	}
	p.cmd = cmd
	return nil
}

// awaitSetup waits for bwrap to report the sandboxed child's pid on the
// status pipe. EOF first means bwrap exited during setup.
func (p *Process) awaitSetup(ctx context.Context, timeout time.Duration) error {
	type setup struct {
		pid int
		err error
	}
	done := make(chan setup, 1)

	go func() {
		dec := json.NewDecoder(p.status)
		for {
			var msg struct {
				ChildPid *int `json:"child-pid"`
			}
			if err := dec.Decode(&msg); err != nil {
				done <- setup{err: err}
				return
			}
			if msg.ChildPid != nil {
				done <- setup{pid: *msg.ChildPid}
				break
			}
		}
		// Keep draining so bwrap never blocks or dies writing its exit status.
		_, _ = io.Copy(io.Discard, io.MultiReader(dec.Buffered(), p.status))
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s := <-done:
		if s.err != nil {
			return fmt.Errorf("%w: bwrap exited during setup", ErrSandboxUnavailable)
		}
		p.childPid = s.pid
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: sandbox setup exceeded %s", ErrSandboxUnavailable, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// diagnostics returns bwrap's stderr after a failed setup.
func (p *Process) diagnostics() string {
	_ = p.stderr.SetReadDeadline(time.Now().Add(time.Second))
	data, _ := io.ReadAll(io.LimitReader(p.stderr, diagLimit))
	return strings.TrimSpace(string(data))
}

func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
