package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xdg/warden/internal/audit"
	"github.com/xdg/warden/internal/client"
	"github.com/xdg/warden/internal/server"
	"github.com/xdg/warden/internal/term"
)

var auditOpts struct {
	remote bool
	lines  int
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
	Long: `Inspect the append-only audit log.

Every response carries hashes of its request, its result and its audit
entry. Any of them can be looked up with "audit show".`,
}

var auditShowCmd = &cobra.Command{
	Use:   "show HASH",
	Short: "Show an audit entry or a stored request/result",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditShow,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify HASH",
	Short: "Recompute an entry's hash and check its chain link",
	Long: `Recompute the hash of an audit entry and of the request and result it
references, and check that the entry links to its predecessor. Exits 1 if
anything does not match.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the most recent audit entries",
	Args:  cobra.NoArgs,
	RunE:  runAuditTail,
}

func init() {
	auditShowCmd.Flags().BoolVar(&auditOpts.remote, "remote", false, "ask the running daemon")
	auditTailCmd.Flags().IntVarP(&auditOpts.lines, "lines", "n", 20, "number of entries")
	auditCmd.AddCommand(auditShowCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	rootCmd.AddCommand(auditCmd)
}

func runAuditShow(cmd *cobra.Command, args []string) error {
	h, err := audit.ParseHash(args[0])
	if err != nil {
		return err
	}

	if auditOpts.remote {
		c, err := client.FromState(server.StatePath())
		if err != nil {
			return err
		}
		reply, err := c.Lookup(cmd.Context(), h)
		if err != nil {
			return err
		}
		return term.JSON(reply)
	}

	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	rec, err := openRecorder(cfg)
	if err != nil {
		return err
	}
	defer closeRecorder(rec)

	l, err := rec.Lookup(cmd.Context(), h)
	if err != nil {
		return fmt.Errorf("look up %s: %w", h, err)
	}
	return term.JSON(server.NewLookupReply(l))
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	h, err := audit.ParseHash(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	rec, err := openRecorder(cfg)
	if err != nil {
		return err
	}
	defer closeRecorder(rec)

	r, err := rec.Verify(cmd.Context(), h)
	if err != nil {
		term.Error("%v", err)
		return NewExitCodeError(exitFailed)
	}
	term.Printf("ok %s seq=%d task=%s\n", h.Short(), r.Entry.Seq, r.Entry.TaskID)
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	if auditOpts.lines < 1 {
		return fmt.Errorf("--lines must be at least 1")
	}
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	rec, err := openRecorder(cfg)
	if err != nil {
		return err
	}
	defer closeRecorder(rec)

	records, err := rec.Store().Tail(cmd.Context(), auditOpts.lines)
	if err != nil {
		return err
	}
	for i := range records {
		term.Println(records[i].Format())
	}
	return nil
}
