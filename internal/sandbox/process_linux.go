//go:build linux

package sandbox

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"

	"golang.org/x/sys/unix"
)

// Process is a running bubblewrap sandbox.
type Process struct {
	cmd      *exec.Cmd
	childPid int
	scratch  string

	stdout *os.File
	stderr *os.File
	status *os.File

	releaseClaim func() error

	waitOnce sync.Once
	exit     ExitStatus
	waitErr  error

	closeOnce   sync.Once
	closeErr    error
	releaseOnce sync.Once
	releaseErr  error
}

// Pid returns the pid of the supervising bwrap process, or 0 before start.
func (p *Process) Pid() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *Process) Stdout() io.Reader { return p.stdout }
func (p *Process) Stderr() io.Reader { return p.stderr }

// Wait reaps bwrap. Safe to call more than once.
func (p *Process) Wait() (ExitStatus, error) {
	if p.cmd == nil {
		return ExitStatus{}, errors.New("process not started")
	}
	p.waitOnce.Do(func() {
		err := p.cmd.Wait()
		var exitErr *exec.ExitError
		switch {
		case err == nil:
			p.exit = ExitStatus{Code: 0, Detail: p.cmd.ProcessState.String()}
		case errors.As(err, &exitErr):
			code := exitErr.ExitCode()
			p.exit = ExitStatus{Code: code, Signaled: code < 0, Detail: exitErr.ProcessState.String()}
		default:
			p.waitErr = err
		}
	})
	return p.exit, p.waitErr
}

// Kill sends SIGKILL to bwrap's process group. Everything inside the
// sandbox dies with bwrap through --die-with-parent and the PID namespace.
func (p *Process) Kill() error {
	pid := p.Pid()
	// kill(-1) and kill(0) would hit unrelated processes.
	if pid <= 1 {
		return os.ErrProcessDone
	}
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return err
	}
	return nil
}

func (p *Process) CloseOutput() error {
	p.closeOnce.Do(func() {
		for _, f := range []*os.File{p.stdout, p.stderr} {
			if f != nil {
				if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
					p.closeErr = errors.Join(p.closeErr, err)
				}
			}
		}
	})
	return p.closeErr
}

// Release closes every pipe, deletes the scratch directory and frees the
// working directory claim. Later calls return the first result.
func (p *Process) Release() error {
	p.releaseOnce.Do(func() {
		errs := []error{p.CloseOutput()}
		if p.status != nil {
			_ = p.status.Close()
		}
		if p.scratch != "" {
			errs = append(errs, removeScratch(p.scratch))
		}
		if p.releaseClaim != nil {
			errs = append(errs, p.releaseClaim())
		}
		p.releaseErr = errors.Join(errs...)
	})
	return p.releaseErr
}
