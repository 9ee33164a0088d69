package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/xdg/warden/internal/clog"
	"github.com/xdg/warden/internal/term"
)

// resetFlags restores every flag of c and its subcommands to its default;
// rootCmd is shared across tests.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCLI executes the root command with args and returns what it wrote to
// stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	term.SetOutput(&stdout)
	term.SetErrOutput(&stderr)
	t.Cleanup(term.Reset)
	t.Cleanup(clog.Reset)

	resetFlags(rootCmd)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// testEnv isolates XDG directories and writes a config with a SQLite
// audit log under a temp dir. It returns the config path and a workdir.
func testEnv(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))

	cfg := `audit:
  store: sqlite
  path: ` + filepath.Join(dir, "audit.db") + `
log:
  file: ` + filepath.Join(dir, "warden.log") + `
policies:
  docs:
    description: Readonly plus markdown linting
    extends: readonly
    allow:
      - '^markdownlint\s'
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	work := filepath.Join(dir, "work")
	if err := os.Mkdir(work, 0o755); err != nil {
		t.Fatal(err)
	}
	return path, work
}

// wantExitCode fails unless err is an ExitCodeError with code.
func wantExitCode(t *testing.T, err error, code int) {
	t.Helper()
	exitErr, ok := err.(*ExitCodeError)
	if !ok {
		t.Fatalf("error = %v, want ExitCodeError(%d)", err, code)
	}
	if exitErr.Code != code {
		t.Errorf("exit code = %d, want %d", exitErr.Code, code)
	}
}
