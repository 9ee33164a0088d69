package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xdg/warden/internal/client"
	"github.com/xdg/warden/internal/clog"
	"github.com/xdg/warden/internal/config"
	"github.com/xdg/warden/internal/engine"
	"github.com/xdg/warden/internal/server"
	"github.com/xdg/warden/internal/supervisor"
	"github.com/xdg/warden/internal/term"
)

var execOpts struct {
	policy  string
	workdir string
	task    string
	timeout time.Duration
	json    bool
	remote  bool
}

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- COMMAND...",
	Short: "Run a command under a policy",
	Long: `Run a shell command in the sandbox after checking it against a policy.

The arguments are joined with spaces and passed to the sandbox shell as one
command string. The exit status is the command's own when it completed,
2 when it was blocked or denied, 124 when it timed out, and 1 otherwise.

Output is plain text on a terminal and JSON otherwise (or with --json).
With --remote the request is sent to a running "warden serve" daemon.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	f := execCmd.Flags()
	f.StringVarP(&execOpts.policy, "policy", "p", "", "policy to enforce (default from config)")
	f.StringVarP(&execOpts.workdir, "workdir", "C", "", "writable working directory (default current directory)")
	f.StringVar(&execOpts.task, "task", "", "task identifier recorded in the audit log")
	f.DurationVarP(&execOpts.timeout, "timeout", "t", 0, "timeout, capped at the configured maximum")
	f.BoolVar(&execOpts.json, "json", false, "print the full response as JSON")
	f.BoolVar(&execOpts.remote, "remote", false, "send the request to the running daemon")
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	req := engine.Request{
		TaskID:  execOpts.task,
		Command: strings.Join(args, " "),
		WorkDir: execOpts.workdir,
		Policy:  execOpts.policy,
		Timeout: execOpts.timeout,
	}
	if req.Policy == "" {
		req.Policy = cfg.Engine.DefaultPolicy
	}
	if req.WorkDir == "" {
		if req.WorkDir, err = os.Getwd(); err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	} else if req.WorkDir, err = filepath.Abs(req.WorkDir); err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, err := execute(ctx, cfg, req)
	if err != nil {
		return err
	}
	if err := printResponse(resp, execOpts.json); err != nil {
		return err
	}
	return exitWith(exitCode(resp))
}

func execute(ctx context.Context, cfg *config.Config, req engine.Request) (*engine.Response, error) {
	if execOpts.remote {
		c, err := client.FromState(server.StatePath())
		if err != nil {
			return nil, err
		}
		return c.Execute(ctx, req)
	}

	eng, err := openEngine(cfg)
	if err != nil {
		return nil, err
	}
	defer closeRecorder(eng.Recorder())

	resp := eng.Execute(ctx, req)
	c := engine.Confidence(&resp)
	resp.Confidence = &c
	return &resp, nil
}

// printResponse writes the command's output to stdout and stderr and a
// one-line summary of any non-completed outcome. JSON mode prints the
// whole response instead.
func printResponse(resp *engine.Response, asJSON bool) error {
	if asJSON || !term.IsTerminal() {
		return term.JSON(resp)
	}

	res := resp.Result
	if res.Stdout.Data != "" || res.Stdout.Truncated {
		term.Print(withNewline(res.Stdout.Text()))
	}
	if res.Stderr.Data != "" || res.Stderr.Truncated {
		_, _ = fmt.Fprint(term.Stderr(), withNewline(res.Stderr.Text()))
	}

	switch res.Status {
	case supervisor.Completed:
	case supervisor.Blocked:
		term.Error("%s", resp.Decision)
	default:
		term.Error("%s (%s): %s", res.Status, res.Reason, res.Detail)
	}
	if resp.AuditError != "" {
		term.Warn("not recorded in the audit log: %s", resp.AuditError)
	}
	clog.Debug("exec: task=%s audit=%s", resp.TaskID, resp.Ref(engine.RefAudit))
	return nil
}

func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
