package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xdg/warden/internal/config"
	"github.com/xdg/warden/internal/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage warden's configuration.

The configuration file is stored at ~/.config/warden/config.yaml
(or $XDG_CONFIG_HOME/warden/config.yaml if XDG_CONFIG_HOME is set), unless
--config names another file. A .json or .jsonc file is also accepted.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective config",
	Long: `Print the effective configuration, with defaults filled in, as YAML.

If no config file exists, shows the default configuration.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit config in $EDITOR",
	Long: `Open the configuration file in your editor.

The editor is determined by the EDITOR environment variable, falling back to vi.
If the configuration file doesn't exist, a default one is created first.`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print config file path",
	Args:  cobra.NoArgs,
	Run:   runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default config file",
	Long: `Create the default configuration file if it doesn't exist.

The file is fully commented and lists every setting with its default.
If the file already exists, this command does nothing.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

// selectedConfigPath is --config or the default location.
func selectedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.Path()
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("serialize config: %w", err)
	}
	term.Print(string(data))
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	return config.Edit(selectedConfigPath())
}

func runConfigPath(cmd *cobra.Command, args []string) {
	term.Println(selectedConfigPath())
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := selectedConfigPath()
	created, err := config.WriteDefault(path)
	if err != nil {
		return err
	}
	if created {
		term.Printf("Created default config at: %s\n", path)
	} else {
		term.Printf("Config already exists at: %s\n", path)
	}
	return nil
}
