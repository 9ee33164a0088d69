package policy

import (
	"fmt"
	"regexp"
)

// Rule is a compiled command pattern. Patterns are regular expressions
// matched case-insensitively; allowlist patterns carry their own ^ anchor.
type Rule struct {
	Pattern string
	re      *regexp.Regexp
}

// CompileRule compiles pattern into a case-insensitive Rule.
func CompileRule(pattern string) (Rule, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return Rule{Pattern: pattern, re: re}, nil
}

// MustCompileRule is CompileRule for package-level tables.
func MustCompileRule(pattern string) Rule {
	r, err := CompileRule(pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// Match reports whether command contains a match of the rule.
func (r Rule) Match(command string) bool {
	return r.re != nil && r.re.MatchString(command)
}

// CompileRules compiles every pattern, failing on the first invalid one.
func CompileRules(patterns []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(patterns))
	for _, p := range patterns {
		r, err := CompileRule(p)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}
