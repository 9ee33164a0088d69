// Package testutil provides shared test helpers for warden tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xdg/warden/internal/sandbox"
)

// NewLauncher returns a sandbox launcher whose runtime state lives in a
// per-test temporary directory.
func NewLauncher(t *testing.T) sandbox.Launcher {
	t.Helper()
	return sandbox.New(sandbox.Config{RuntimeDir: t.TempDir()})
}

// RequireSandbox skips the test unless a trivial command can be launched
// in the sandbox. The calling package's TestMain must call
// sandbox.MaybeInit.
func RequireSandbox(t *testing.T) {
	t.Helper()
	l := NewLauncher(t)
	if err := l.Available(); err != nil {
		t.Skipf("sandbox not available: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	h, err := l.Launch(ctx, sandbox.Spec{Command: "exit 0", WorkDir: Workdir(t)})
	if err != nil {
		t.Skipf("sandbox not usable: %v", err)
	}
	defer func() { _ = h.Release() }()

	go func() { _, _ = io.Copy(io.Discard, h.Stdout()) }()
	go func() { _, _ = io.Copy(io.Discard, h.Stderr()) }()
	if st, err := h.Wait(); err != nil || st.Code != 0 {
		t.Skipf("sandbox probe failed: status=%+v err=%v", st, err)
	}
}

// Workdir creates an empty directory suitable as a sandbox working
// directory and returns its canonical path.
func Workdir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolve temp dir: %v", err)
	}
	return dir
}

// WriteFile creates name under dir with content.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// TaskID returns a task identifier unique within the test run.
func TaskID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
