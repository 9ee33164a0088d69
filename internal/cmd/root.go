// Package cmd implements the warden command line.
package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/xdg/warden/internal/term"
	"github.com/xdg/warden/internal/version"
)

var (
	configPath string
	debugFlag  bool
	silentFlag bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Policy-enforced sandboxed command execution",
	Long: `Warden runs shell commands on behalf of automated callers.

Every command is checked against a universal blocklist and the allowlist of
a named policy, then runs in a sandbox with a read-only filesystem, a single
writable working directory, no network, and a hard timeout. Every request,
allowed or not, is recorded in a hash-chained audit log.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		term.SetSilent(silentFlag)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/warden/config.yaml)")
	pf.BoolVar(&debugFlag, "debug", false, "log at debug level")
	pf.BoolVar(&silentFlag, "silent", false, "suppress normal output")
}

// Execute runs the root command. Errors other than an ExitCodeError are
// printed before being returned.
func Execute() error {
	err := rootCmd.Execute()
	var exitErr *ExitCodeError
	if err != nil && !errors.As(err, &exitErr) {
		term.Error("%v", err)
	}
	return err
}
