package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xdg/warden/internal/policy"
	"github.com/xdg/warden/internal/term"
	"github.com/xdg/warden/internal/validator"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect execution policies",
	Long: `Inspect the built-in and configured execution policies.

Policies are defined in the config file under "policies" and may extend the
built-in readonly, default and build policies.`,
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List policies",
	Args:  cobra.NoArgs,
	RunE:  runPolicyList,
}

var policyShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show a resolved policy",
	Long:  `Print a policy with inherited allow and deny patterns resolved, as YAML.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyShow,
}

var policyBlocklistCmd = &cobra.Command{
	Use:   "blocklist",
	Short: "Show the universal blocklist",
	Long: `Print the patterns that block a command under every policy.

Patterns match anywhere in the command, case-insensitively.`,
	Args: cobra.NoArgs,
	RunE: runPolicyBlocklist,
}

func init() {
	policyCmd.AddCommand(policyListCmd)
	policyCmd.AddCommand(policyShowCmd)
	policyCmd.AddCommand(policyBlocklistCmd)
	rootCmd.AddCommand(policyCmd)
}

func loadPolicies() (*policy.Store, error) {
	cfg, err := loadConfig(false)
	if err != nil {
		return nil, err
	}
	return cfg.PolicyStore()
}

func runPolicyList(cmd *cobra.Command, args []string) error {
	store, err := loadPolicies()
	if err != nil {
		return err
	}
	var rows [][]string
	for _, p := range store.List() {
		extends := p.Extends
		if extends == "" {
			extends = "-"
		}
		rows = append(rows, []string{p.ID, extends, p.Concurrency.String(), p.Description})
	}
	term.Table([]string{"NAME", "EXTENDS", "CONCURRENCY", "DESCRIPTION"}, rows)
	return nil
}

// policyView is the YAML shape of "policy show".
type policyView struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Extends     string   `yaml:"extends,omitempty"`
	Concurrency string   `yaml:"concurrency"`
	Allow       []string `yaml:"allow"`
	Deny        []string `yaml:"deny,omitempty"`
}

func runPolicyShow(cmd *cobra.Command, args []string) error {
	store, err := loadPolicies()
	if err != nil {
		return err
	}
	p, err := store.Lookup(args[0])
	if err != nil {
		return err
	}

	view := policyView{
		Name:        p.ID,
		Description: p.Description,
		Extends:     p.Extends,
		Concurrency: p.Concurrency.String(),
	}
	for _, r := range p.Allowlist() {
		view.Allow = append(view.Allow, r.Pattern)
	}
	for _, r := range p.Denylist() {
		view.Deny = append(view.Deny, r.Pattern)
	}

	data, err := yaml.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode policy: %w", err)
	}
	term.Print(string(data))
	return nil
}

func runPolicyBlocklist(cmd *cobra.Command, args []string) error {
	var rows [][]string
	for _, c := range validator.Blocklist() {
		for _, pattern := range c.Patterns {
			rows = append(rows, []string{c.Name, pattern})
		}
	}
	term.Table([]string{"CATEGORY", "PATTERN"}, rows)
	return nil
}
