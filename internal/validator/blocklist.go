package validator

import "github.com/xdg/warden/internal/policy"

type blockRule struct {
	category string
	rule     policy.Rule
}

// universalTable is applied under every policy, in order. Patterns match
// anywhere in the command, case-insensitively.
var universalTable = []struct {
	category string
	patterns []string
}{
	{"recursive_delete", []string{`rm\s+-rf`, `rm\s+.*\*`}},
	{"network_fetch", []string{`\bcurl\b`, `\bwget\b`}},
	{"permissions", []string{`\bchmod\b`, `\bchown\b`}},
	{"privilege", []string{`\bsudo\b`, `\bsu\s`}},
	{"disk", []string{`\bdd\b`, `\bmkfs\b`}},
	{"power", []string{`\bshutdown\b`, `\breboot\b`, `\binit\b`, `\bsystemctl\b`}},
	{"package_install", []string{
		`npm install`, `pip install`, `cargo install`, `go install`,
		`apt\s`, `apt-get\s`, `yum\s`, `dnf\s`, `pacman\s`,
	}},
	{"system_redirect", []string{`>\s*/`, `>\s*~`}},
	{"shell_pipe", []string{`\|.*sh\b`, `;\s*rm`, `&&\s*rm`}},
	{"substitution", []string{"`", `\$\(`}},
}

var universal = compileUniversal()

func compileUniversal() []blockRule {
	var rules []blockRule
	for _, entry := range universalTable {
		for _, p := range entry.patterns {
			rules = append(rules, blockRule{category: entry.category, rule: policy.MustCompileRule(p)})
		}
	}
	return rules
}

// Category is one named group of universal blocklist patterns.
type Category struct {
	Name     string
	Patterns []string
}

// Blocklist returns the universal patterns grouped by category, in
// evaluation order.
func Blocklist() []Category {
	out := make([]Category, 0, len(universalTable))
	for _, entry := range universalTable {
		out = append(out, Category{Name: entry.category, Patterns: append([]string(nil), entry.patterns...)})
	}
	return out
}
