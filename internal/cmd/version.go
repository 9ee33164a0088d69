package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xdg/warden/internal/term"
	"github.com/xdg/warden/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		term.Println(version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
