package engine

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xdg/warden/internal/sandbox"
)

// fakeRun describes how a fake sandboxed process behaves.
type fakeRun struct {
	stdout   string
	stderr   string
	code     int
	duration time.Duration
}

// fakeLauncher records launches and plays back fakeRuns without spawning
// anything.
type fakeLauncher struct {
	behave    func(spec sandbox.Spec) fakeRun
	launchErr error

	launches  atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32

	mu    sync.Mutex
	order []string
}

var _ sandbox.Launcher = (*fakeLauncher)(nil)

func (l *fakeLauncher) Name() string     { return "fake" }
func (l *fakeLauncher) Available() error { return nil }

func (l *fakeLauncher) Launch(_ context.Context, spec sandbox.Spec) (sandbox.Handle, error) {
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	l.launches.Add(1)

	n := l.active.Add(1)
	for {
		prev := l.maxActive.Load()
		if n <= prev || l.maxActive.CompareAndSwap(prev, n) {
			break
		}
	}
	l.mu.Lock()
	l.order = append(l.order, spec.Command)
	l.mu.Unlock()

	run := fakeRun{}
	if l.behave != nil {
		run = l.behave(spec)
	} else if text, ok := strings.CutPrefix(spec.Command, "echo "); ok {
		run.stdout = text + "\n"
	}
	return &fakeHandle{l: l, run: run, killed: make(chan struct{})}, nil
}

func (l *fakeLauncher) launched() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

type fakeHandle struct {
	l   *fakeLauncher
	run fakeRun

	killOnce    sync.Once
	killed      chan struct{}
	releaseOnce sync.Once
}

func (h *fakeHandle) Pid() int          { return 4242 }
func (h *fakeHandle) Stdout() io.Reader { return strings.NewReader(h.run.stdout) }
func (h *fakeHandle) Stderr() io.Reader { return strings.NewReader(h.run.stderr) }

func (h *fakeHandle) Wait() (sandbox.ExitStatus, error) {
	select {
	case <-time.After(h.run.duration):
		return sandbox.ExitStatus{Code: h.run.code}, nil
	case <-h.killed:
		return sandbox.ExitStatus{Code: -1, Signaled: true, Detail: "signal: killed"}, nil
	}
}

func (h *fakeHandle) Kill() error {
	h.killOnce.Do(func() { close(h.killed) })
	return nil
}

func (h *fakeHandle) CloseOutput() error { return nil }

func (h *fakeHandle) Release() error {
	h.releaseOnce.Do(func() { h.l.active.Add(-1) })
	return nil
}
