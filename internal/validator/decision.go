// Package validator decides whether a command may run under a policy,
// before any process exists.
//
// Validation is pure: the universal blocklist and every policy are
// compiled once and shared read-only. A command matching the blocklist is
// blocked even when the policy would allow it.
//
// Pattern matching cannot recognise semantically equivalent commands
// written differently (aliases, encodings, interpreters). That residual risk
// is accepted; the sandbox is the independent second layer.
package validator

import "fmt"

// Verdict is the outcome class of a validation.
type Verdict int

const (
	// Allowed means the command may be launched.
	Allowed Verdict = iota
	// BlockedByPattern means a blocklist pattern matched.
	BlockedByPattern
	// DeniedByPolicy means the policy does not permit the command.
	DeniedByPolicy
)

// String returns the verdict name used in audit records.
func (v Verdict) String() string {
	switch v {
	case Allowed:
		return "allowed"
	case BlockedByPattern:
		return "blocked_by_pattern"
	case DeniedByPolicy:
		return "denied_by_policy"
	default:
		return "unknown"
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(b []byte) error {
	switch string(b) {
	case "allowed":
		*v = Allowed
	case "blocked_by_pattern":
		*v = BlockedByPattern
	case "denied_by_policy":
		*v = DeniedByPolicy
	default:
		return fmt.Errorf("unknown verdict %q", b)
	}
	return nil
}

// Decision is the tagged result of Validate. Pattern is the matching
// blocklist or allowlist pattern; Rule names the blocklist category.
type Decision struct {
	Verdict Verdict `json:"verdict"`
	Pattern string  `json:"pattern,omitempty"`
	Rule    string  `json:"rule,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

// IsAllowed reports whether the command may be launched.
func (d Decision) IsAllowed() bool { return d.Verdict == Allowed }

func (d Decision) String() string {
	switch d.Verdict {
	case Allowed:
		return fmt.Sprintf("allowed by %q", d.Pattern)
	case BlockedByPattern:
		return fmt.Sprintf("blocked by %s pattern %q", d.Rule, d.Pattern)
	default:
		return "denied: " + d.Reason
	}
}

func allow(pattern string) Decision {
	return Decision{Verdict: Allowed, Pattern: pattern, Reason: "allowed by policy"}
}

func block(rule, pattern string) Decision {
	return Decision{
		Verdict: BlockedByPattern,
		Pattern: pattern,
		Rule:    rule,
		Reason:  fmt.Sprintf("matches dangerous pattern '%s'", pattern),
	}
}

// Deny returns a DeniedByPolicy decision. It is also used by the engine for
// requests refused before or at launch (unknown policy, busy working
// directory).
func Deny(reason string) Decision {
	return Decision{Verdict: DeniedByPolicy, Reason: reason}
}
