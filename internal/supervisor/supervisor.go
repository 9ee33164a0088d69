// Package supervisor owns a sandboxed process from launch to exit: it
// enforces the wall-clock timeout, kills on expiry, bounds captured
// output, rejects binary output, and always releases the sandbox.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xdg/warden/internal/clog"
	"github.com/xdg/warden/internal/sandbox"
)

const (
	DefaultTimeout        = 10 * time.Second
	MaxTimeout            = 60 * time.Second
	DefaultMaxOutputBytes = 10 * 1024

	// defaultDrainGrace bounds how long output pipes may stay open after
	// the process exits, e.g. held by a stray descendant.
	defaultDrainGrace = 3 * time.Second
)

// Config configures a Supervisor. Zero fields take the package defaults.
// MaxTimeout may lower the ceiling but never raise it above the package
// MaxTimeout.
type Config struct {
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
	MaxOutputBytes int
	DrainGrace     time.Duration
}

// Supervisor runs sandboxed processes to completion. It holds no
// per-request state and is safe for concurrent use.
type Supervisor struct {
	cfg Config
	now func() time.Time
}

// New returns a Supervisor.
func New(cfg Config) *Supervisor {
	if cfg.MaxTimeout <= 0 || cfg.MaxTimeout > MaxTimeout {
		cfg.MaxTimeout = MaxTimeout
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = DefaultMaxOutputBytes
	}
	if cfg.DrainGrace <= 0 {
		cfg.DrainGrace = defaultDrainGrace
	}
	return &Supervisor{cfg: cfg, now: time.Now}
}

// Timeout returns the effective timeout for a caller override: the default
// when unset, never more than the ceiling.
func (s *Supervisor) Timeout(override time.Duration) time.Duration {
	if override <= 0 {
		return min(s.cfg.DefaultTimeout, s.cfg.MaxTimeout)
	}
	return min(override, s.cfg.MaxTimeout)
}

type killCause int32

const (
	causeNone killCause = iota
	causeTimeout
	causeCanceled
)

// Run waits for h to finish, killing it with SIGKILL once the effective
// timeout for override passes or ctx is done. h is released before Run
// returns on every path.
func (s *Supervisor) Run(ctx context.Context, h sandbox.Handle, override time.Duration) (res Result) {
	timeout := s.Timeout(override)
	start := s.now()
	log := clog.Default()

	defer func() {
		if err := h.Release(); err != nil {
			log.Error("supervisor: release pid=%d: %v", h.Pid(), err)
			res.Status = Failed
			res.Reason = ReasonInternalFailure
			res.Detail = fmt.Sprintf("sandbox cleanup failed: %v", err)
		}
	}()

	var cause atomic.Int32
	exited := make(chan struct{})
	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-timer.C:
			cause.CompareAndSwap(int32(causeNone), int32(causeTimeout))
		case <-ctx.Done():
			cause.CompareAndSwap(int32(causeNone), int32(causeCanceled))
		case <-exited:
			return
		}
		if err := h.Kill(); err != nil {
			log.Warn("supervisor: kill pid=%d: %v", h.Pid(), err)
		}
	}()

	stdout := newCapture(s.cfg.MaxOutputBytes)
	stderr := newCapture(s.cfg.MaxOutputBytes)
	var wg sync.WaitGroup
	wg.Add(2)
	go drain(&wg, stdout, h.Stdout())
	go drain(&wg, stderr, h.Stderr())

	st, waitErr := h.Wait()
	close(exited)
	res.Elapsed = s.now().Sub(start)

	drained := make(chan struct{})
	go func() {
		wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(s.cfg.DrainGrace):
		log.Warn("supervisor: output of pid=%d still open after exit, closing", h.Pid())
		_ = h.CloseOutput()
		<-drained
	}

	// A kill that lands after the process exited leaves a clean status: the
	// command finished on its own and its exit code stands.
	killed := killCause(cause.Load())
	switch {
	case waitErr != nil:
		res.Status, res.Reason = Failed, ReasonInternalFailure
		res.Detail = fmt.Sprintf("wait: %v", waitErr)
	case killed == causeTimeout && st.Signaled:
		res.Status, res.Reason = TimedOut, ReasonTimeoutExceeded
		res.Detail = fmt.Sprintf("command timed out after %s", timeout)
	case killed == causeCanceled && st.Signaled:
		res.Status, res.Reason = Failed, ReasonCanceled
		res.Detail = fmt.Sprintf("canceled: %v", context.Cause(ctx))
	case st.Signaled:
		res.Status, res.Reason = Failed, ReasonKilled
		res.Detail = st.Detail
	default:
		code := st.Code
		res.Status, res.ExitCode = Completed, &code
	}

	var outOK, errOK bool
	res.Stdout, outOK = stdout.stream()
	res.Stderr, errOK = stderr.stream()
	if !outOK || !errOK {
		if res.Status == Completed {
			res.Status, res.Reason = Failed, ReasonNonUTF8Output
			res.Detail = "command produced output that is not valid UTF-8"
		}
	}

	log.Debug("supervisor: pid=%d status=%s elapsed=%s", h.Pid(), res.Status, res.Elapsed)
	return res
}

func drain(wg *sync.WaitGroup, c *capture, r io.Reader) {
	defer wg.Done()
	_, _ = io.Copy(c, r)
}
