//go:build !linux

package sandbox

import (
	"context"
	"fmt"
	"runtime"
)

// Detect reports that no backend exists on this platform.
func Detect(cfg Config) Capabilities {
	return Capabilities{
		Platform: runtime.GOOS,
		Backend:  "unsupported",
		Problems: []string{fmt.Sprintf("no sandbox backend for %s", runtime.GOOS)},
	}
}

type unsupported struct{}

// New returns a Launcher whose every launch fails with ErrSandboxUnavailable.
func New(cfg Config) Launcher { return unsupported{} }

func (unsupported) Name() string { return "unsupported" }

func (unsupported) Available() error {
	return Detect(Config{}).Err()
}

func (u unsupported) Launch(context.Context, Spec) (Handle, error) {
	return nil, u.Available()
}
