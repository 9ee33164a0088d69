package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xdg/warden/internal/sandbox"
	"github.com/xdg/warden/internal/term"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that this host can run the sandbox",
	Long: `Report the sandbox backend, the bubblewrap binary and whether user
namespaces are available. Exits 1 if sandboxed execution cannot work here;
warden never runs commands outside the sandbox.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	caps := sandbox.Detect(cfg.SandboxConfig())

	bwrap := caps.BwrapPath
	if bwrap == "" {
		bwrap = "not found"
	} else if caps.BwrapSetuid {
		bwrap += " (setuid)"
	}
	term.Table([]string{"CHECK", "VALUE"}, [][]string{
		{"platform", caps.Platform},
		{"kernel", caps.Kernel},
		{"backend", caps.Backend},
		{"bwrap", bwrap},
		{"user namespaces", strconv.FormatBool(caps.UserNamespaces)},
		{"running as root", strconv.FormatBool(caps.Root)},
	})

	if !caps.Usable() {
		for _, p := range caps.Problems {
			term.Error("%s", p)
		}
		return NewExitCodeError(exitFailed)
	}
	term.Println("\nsandbox is usable")
	return nil
}
