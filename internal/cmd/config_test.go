package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigCmd_HasSubcommands(t *testing.T) {
	expected := map[string]bool{"show": false, "edit": false, "path": false, "init": false}
	for _, c := range configCmd.Commands() {
		if _, ok := expected[c.Name()]; ok {
			expected[c.Name()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("missing subcommand: %s", name)
		}
	}
}

func TestConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	stdout, _, err := runCLI(t, "config", "path")
	if err != nil {
		t.Fatalf("config path error = %v", err)
	}
	if want := filepath.Join(dir, "warden", "config.yaml") + "\n"; stdout != want {
		t.Errorf("config path = %q, want %q", stdout, want)
	}

	stdout, _, _ = runCLI(t, "--config", "/etc/warden.yaml", "config", "path")
	if stdout != "/etc/warden.yaml\n" {
		t.Errorf("config path with --config = %q", stdout)
	}
}

func TestConfigInit_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := filepath.Join(dir, "warden", "config.yaml")

	stdout, _, err := runCLI(t, "config", "init")
	if err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if !strings.Contains(stdout, "Created default config") {
		t.Errorf("config init output = %q", stdout)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file mode = %o, want 600", perm)
	}

	stdout, _, err = runCLI(t, "config", "init")
	if err != nil || !strings.Contains(stdout, "already exists") {
		t.Errorf("second config init = %q, %v", stdout, err)
	}
}

func TestConfigShow(t *testing.T) {
	cfg, _ := testEnv(t)

	stdout, _, err := runCLI(t, "--config", cfg, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	for _, want := range []string{"default_timeout: 10s", "store: sqlite", "docs:", "max_file_size: 1GiB"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("config show missing %q\n%s", want, stdout)
		}
	}
}

func TestConfigShow_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  bogus: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, "--config", path, "config", "show"); err == nil {
		t.Error("config show accepted an unknown field")
	}
}
