package policy

import (
	"fmt"
	"slices"
	"sort"
)

// Store is an immutable registry of resolved policies keyed by identifier.
type Store struct {
	policies map[string]*Policy
}

// Builtin returns a Store holding only the built-in policies.
func Builtin() *Store {
	s, err := NewStore(nil)
	if err != nil {
		panic(err)
	}
	return s
}

// NewStore resolves the built-in policies plus extra. Extra definitions may
// extend any policy, built-in or not, but may not redefine one.
func NewStore(extra []Definition) (*Store, error) {
	defs := make(map[string]Definition)
	for _, d := range append(Builtins(), extra...) {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := defs[d.ID]; dup {
			return nil, fmt.Errorf("%w: %s is defined more than once", ErrInvalidDefinition, d.ID)
		}
		defs[d.ID] = d
	}

	s := &Store{policies: make(map[string]*Policy, len(defs))}
	for id := range defs {
		if _, err := s.resolve(id, defs, nil); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) resolve(id string, defs map[string]Definition, chain []string) (*Policy, error) {
	if p, ok := s.policies[id]; ok {
		return p, nil
	}
	if slices.Contains(chain, id) {
		return nil, fmt.Errorf("%w: extends cycle %v", ErrInvalidDefinition, append(chain, id))
	}
	d, ok := defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s extends unknown policy %q", ErrInvalidDefinition, chain[len(chain)-1], id)
	}

	p := &Policy{ID: d.ID, Description: d.Description, Extends: d.Extends}
	var allow, deny []string
	if d.Extends != "" {
		parent, err := s.resolve(d.Extends, defs, append(chain, id))
		if err != nil {
			return nil, err
		}
		allow = patterns(parent.allow)
		deny = patterns(parent.deny)
		p.Concurrency = parent.Concurrency
	}
	allow = union(allow, d.Allow)
	deny = union(deny, d.Deny)
	switch {
	case d.Concurrency != nil:
		p.Concurrency = *d.Concurrency
	case d.Extends == "":
		p.Concurrency = Sequential()
	}

	var err error
	if p.allow, err = CompileRules(allow); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, id, err)
	}
	if p.deny, err = CompileRules(deny); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, id, err)
	}

	s.policies[id] = p
	return p, nil
}

// Lookup returns the policy registered under id.
func (s *Store) Lookup(id string) (*Policy, error) {
	p, ok := s.policies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, id)
	}
	return p, nil
}

// List returns every policy sorted by identifier.
func (s *Store) List() []*Policy {
	out := make([]*Policy, 0, len(s.policies))
	for _, p := range s.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func patterns(rules []Rule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Pattern
	}
	return out
}

// union appends the entries of add missing from base, keeping order.
func union(base, add []string) []string {
	seen := make(map[string]bool, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	for _, p := range append(slices.Clone(base), add...) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
