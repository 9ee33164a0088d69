package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStatusAndStopWithoutDaemon(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", filepath.Join(t.TempDir(), "state"))

	stdout, _, err := runCLI(t, "status")
	wantExitCode(t, err, exitFailed)
	if !strings.Contains(stdout, "not running") {
		t.Errorf("status output = %q", stdout)
	}

	stdout, _, err = runCLI(t, "stop")
	if err != nil {
		t.Fatalf("stop error = %v", err)
	}
	if !strings.Contains(stdout, "not running") {
		t.Errorf("stop output = %q", stdout)
	}
}

func TestAuditMemoryStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("audit:\n  store: memory\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, _, err := runCLI(t, "--config", path, "audit", "tail")
	if err == nil || !strings.Contains(err.Error(), "not persisted") {
		t.Errorf("audit tail with memory store error = %v", err)
	}
}
