package sandbox

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestScratchLifecycle(t *testing.T) {
	runtimeDir := t.TempDir()

	dir, err := newScratch(runtimeDir)
	if err != nil {
		t.Fatalf("newScratch() error = %v", err)
	}
	if !strings.HasPrefix(dir, filepath.Join(runtimeDir, "scratch")) {
		t.Errorf("scratch %q not under runtime dir", dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o700 {
		t.Errorf("scratch perm = %o, want 700", perm)
	}

	// A read-only subdirectory must not block removal.
	locked := filepath.Join(dir, "locked")
	if err := os.MkdirAll(filepath.Join(locked, "inner"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(locked, "inner", "f"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(filepath.Join(locked, "inner"), 0o500); err != nil {
		t.Fatal(err)
	}

	if err := removeScratch(dir); err != nil {
		t.Fatalf("removeScratch() error = %v", err)
	}
	if _, err := os.Stat(dir); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("scratch still exists: %v", err)
	}
	if err := removeScratch(dir); err != nil {
		t.Errorf("removeScratch() on missing dir error = %v", err)
	}
}

func TestLimitsOr(t *testing.T) {
	def := DefaultLimits()
	if got := (Limits{}).Or(def); got != def {
		t.Errorf("zero.Or(def) = %+v, want %+v", got, def)
	}
	own := Limits{MaxOpenFiles: 64}
	if got := own.Or(def); got != own {
		t.Errorf("own.Or(def) = %+v, want %+v", got, own)
	}
	if !(Limits{}).IsZero() || def.IsZero() {
		t.Error("IsZero mismatch")
	}
}
