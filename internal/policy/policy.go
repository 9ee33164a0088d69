// Package policy holds the named execution policies: which commands a
// caller may run and how many may run at once.
//
// Policies are resolved once, at startup, into an immutable Store. There is
// no runtime mutation path; callers share the Store freely across goroutines.
package policy

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// Well-known policy identifiers.
const (
	Default  = "default"
	ReadOnly = "readonly"
	Build    = "build"
)

var (
	// ErrUnknownPolicy is returned by Lookup for an unregistered identifier.
	ErrUnknownPolicy = errors.New("unknown policy")
	// ErrInvalidDefinition is returned by NewStore for a malformed definition.
	ErrInvalidDefinition = errors.New("invalid policy definition")
)

var idPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Policy is a resolved, immutable policy.
type Policy struct {
	ID          string
	Description string
	Extends     string
	Concurrency Concurrency

	allow []Rule
	deny  []Rule
}

// Allowlist returns the ordered allowlist, inherited patterns first.
func (p *Policy) Allowlist() []Rule { return slices.Clone(p.allow) }

// Denylist returns the policy-specific blocklist additions.
func (p *Policy) Denylist() []Rule { return slices.Clone(p.deny) }

// Allows returns the first allowlist rule matching command.
func (p *Policy) Allows(command string) (Rule, bool) {
	for _, r := range p.allow {
		if r.Match(command) {
			return r, true
		}
	}
	return Rule{}, false
}

// Denies returns the first policy-specific deny rule matching command.
func (p *Policy) Denies(command string) (Rule, bool) {
	for _, r := range p.deny {
		if r.Match(command) {
			return r, true
		}
	}
	return Rule{}, false
}

// Definition is the unresolved form of a policy, as written in
// configuration. Extends names a policy whose allow and deny lists are
// inherited; a nil Concurrency inherits the parent's class, or is
// sequential when nothing is extended.
type Definition struct {
	ID          string
	Description string
	Extends     string
	Allow       []string
	Deny        []string
	Concurrency *Concurrency
}

func (d Definition) validate() error {
	if !idPattern.MatchString(d.ID) {
		return fmt.Errorf("%w: id %q must match %s", ErrInvalidDefinition, d.ID, idPattern)
	}
	if d.Extends == "" && len(d.Allow) == 0 {
		return fmt.Errorf("%w: %s: allow list is empty and nothing is extended", ErrInvalidDefinition, d.ID)
	}
	if c := d.Concurrency; c != nil {
		switch c.Mode {
		case ModeSequential:
		case ModeParallel:
			if c.Limit < 1 {
				return fmt.Errorf("%w: %s: parallel limit must be at least 1", ErrInvalidDefinition, d.ID)
			}
		default:
			return fmt.Errorf("%w: %s: unknown concurrency mode %q", ErrInvalidDefinition, d.ID, c.Mode)
		}
	}
	return nil
}
