package server

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "daemon.json")

	st, err := LoadState(path)
	if err != nil || st != nil {
		t.Fatalf("LoadState() on missing file = %v, %v; want nil, nil", st, err)
	}

	want := &State{PID: os.Getpid(), Secret: NewSecret(), Socket: "/tmp/w.sock", Started: time.Now().UTC().Truncate(time.Second)}
	if err := SaveState(path, want); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("state file mode = %o, want 600", perm)
	}

	got, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	if got.PID != want.PID || got.Secret != want.Secret || got.Socket != want.Socket || !got.Started.Equal(want.Started) {
		t.Errorf("LoadState() = %+v, want %+v", got, want)
	}

	if err := RemoveState(path); err != nil {
		t.Fatalf("RemoveState() error = %v", err)
	}
	if err := RemoveState(path); err != nil {
		t.Errorf("RemoveState() on missing file error = %v", err)
	}
}

func TestNewSecret(t *testing.T) {
	a, b := NewSecret(), NewSecret()
	if len(a) != 64 {
		t.Errorf("len(NewSecret()) = %d, want 64", len(a))
	}
	if a == b {
		t.Error("NewSecret() returned the same value twice")
	}
}

func TestRunning(t *testing.T) {
	if !(&State{PID: os.Getpid()}).Running() {
		t.Error("Running() = false for this process")
	}
	if (&State{}).Running() {
		t.Error("Running() = true for pid 0")
	}
	var nilState *State
	if nilState.Running() {
		t.Error("Running() = true for nil state")
	}

	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("cannot run true: %v", err)
	}
	if (&State{PID: cmd.Process.Pid}).Running() {
		t.Error("Running() = true for a reaped process")
	}
}

func TestCleanupStale(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.json")
	sock := filepath.Join(dir, "w.sock")
	if err := os.WriteFile(sock, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	live := &State{PID: os.Getpid(), Socket: sock}
	if err := SaveState(path, live); err != nil {
		t.Fatal(err)
	}
	if removed, err := CleanupStale(path); err != nil || removed {
		t.Fatalf("CleanupStale() for live daemon = %v, %v; want false, nil", removed, err)
	}

	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("cannot run true: %v", err)
	}
	if err := SaveState(path, &State{PID: cmd.Process.Pid, Socket: sock}); err != nil {
		t.Fatal(err)
	}
	removed, err := CleanupStale(path)
	if err != nil || !removed {
		t.Fatalf("CleanupStale() for dead daemon = %v, %v; want true, nil", removed, err)
	}
	for _, p := range []string{path, sock} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s still exists after cleanup", p)
		}
	}
}
