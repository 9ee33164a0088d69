package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xdg/warden/internal/policy"
)

// Validate decides whether command may run under p. A nil policy is denied.
func Validate(command string, p *policy.Policy) Decision {
	command = strings.TrimSpace(command)
	if command == "" {
		return Deny("empty")
	}
	if !utf8.ValidString(command) || strings.ContainsRune(command, 0) {
		return Deny("malformed command text")
	}

	for _, r := range universal {
		if r.rule.Match(command) {
			return block(r.category, r.rule.Pattern)
		}
	}

	if p == nil {
		return Deny("unknown policy")
	}
	if r, ok := p.Denies(command); ok {
		return block("policy:"+p.ID, r.Pattern)
	}
	if r, ok := p.Allows(command); ok {
		return allow(r.Pattern)
	}
	return Deny(fmt.Sprintf("not in allowlist for policy '%s'", p.ID))
}
