package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/xdg/warden/internal/client"
	"github.com/xdg/warden/internal/server"
	"github.com/xdg/warden/internal/term"
	"github.com/xdg/warden/internal/validator"
)

var checkOpts struct {
	policy string
	json   bool
	remote bool
}

var checkCmd = &cobra.Command{
	Use:   "check [flags] -- COMMAND...",
	Short: "Validate a command without running it",
	Long: `Report whether a command would be allowed under a policy.

Nothing is executed and nothing is recorded. Exits 0 when the command is
allowed and 2 when it is blocked or denied.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	f := checkCmd.Flags()
	f.StringVarP(&checkOpts.policy, "policy", "p", "", "policy to check against (default from config)")
	f.BoolVar(&checkOpts.json, "json", false, "print the decision as JSON")
	f.BoolVar(&checkOpts.remote, "remote", false, "ask the running daemon")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	command := strings.Join(args, " ")
	policyID := checkOpts.policy
	if policyID == "" {
		policyID = cfg.Engine.DefaultPolicy
	}

	var d validator.Decision
	if checkOpts.remote {
		c, err := client.FromState(server.StatePath())
		if err != nil {
			return err
		}
		if d, err = c.Check(cmd.Context(), command, policyID); err != nil {
			return err
		}
	} else {
		store, err := cfg.PolicyStore()
		if err != nil {
			return err
		}
		p, err := store.Lookup(policyID)
		if err != nil {
			p = nil
		}
		d = validator.Validate(command, p)
	}

	if checkOpts.json || !term.IsTerminal() {
		if err := term.JSON(d); err != nil {
			return err
		}
	} else {
		term.Println(d)
	}
	if !d.IsAllowed() {
		return NewExitCodeError(exitBlocked)
	}
	return nil
}
