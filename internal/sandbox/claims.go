package sandbox

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Claims grants exclusive ownership of working directories. A claim on a
// directory also excludes claims on its ancestors and descendants, since
// their writable binds would overlap.
//
// Ownership is tracked in-process and, when a lock directory is set, with
// advisory file locks so separate warden processes exclude each other too:
// a claim takes a shared lock on every ancestor and an exclusive lock on
// the directory itself.
type Claims struct {
	lockDir string

	mu   sync.Mutex
	held map[string]struct{}
}

// NewClaims returns a registry that keeps lock files in lockDir. An empty
// lockDir limits exclusion to this process.
func NewClaims(lockDir string) *Claims {
	return &Claims{lockDir: lockDir, held: make(map[string]struct{})}
}

// Acquire claims dir or fails fast with ErrWorkdirBusy. dir must be an
// absolute, clean path. The returned release function is idempotent.
func (c *Claims) Acquire(dir string) (func() error, error) {
	dir = filepath.Clean(dir)

	c.mu.Lock()
	defer c.mu.Unlock()

	for other := range c.held {
		if overlaps(dir, other) {
			return nil, fmt.Errorf("%w: %s overlaps %s", ErrWorkdirBusy, dir, other)
		}
	}

	var unlock func() error
	if c.lockDir != "" {
		var err error
		unlock, err = c.lockTree(dir)
		if err != nil {
			return nil, err
		}
	}
	c.held[dir] = struct{}{}

	var once sync.Once
	var releaseErr error
	return func() error {
		once.Do(func() {
			c.mu.Lock()
			delete(c.held, dir)
			c.mu.Unlock()
			if unlock != nil {
				releaseErr = unlock()
			}
		})
		return releaseErr
	}, nil
}

// lockTree takes shared locks on the ancestors of dir, outermost first,
// then an exclusive lock on dir.
func (c *Claims) lockTree(dir string) (func() error, error) {
	var unlocks []func() error
	unlockAll := func() error {
		var errs []error
		for i := len(unlocks) - 1; i >= 0; i-- {
			errs = append(errs, unlocks[i]())
		}
		return errors.Join(errs...)
	}

	for _, p := range ancestors(dir) {
		unlock, err := lockFile(filepath.Join(c.lockDir, lockName(p)), false)
		if err != nil {
			_ = unlockAll()
			return nil, fmt.Errorf("claim %s: ancestor %s: %w", dir, p, err)
		}
		unlocks = append(unlocks, unlock)
	}
	unlock, err := lockFile(filepath.Join(c.lockDir, lockName(dir)), true)
	if err != nil {
		_ = unlockAll()
		return nil, fmt.Errorf("claim %s: %w", dir, err)
	}
	unlocks = append(unlocks, unlock)
	return unlockAll, nil
}

// Held reports whether dir is claimed by this process.
func (c *Claims) Held(dir string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.held[filepath.Clean(dir)]
	return ok
}

// overlaps reports whether a and b are the same directory or one contains
// the other.
func overlaps(a, b string) bool {
	return a == b || within(a, b) || within(b, a)
}

func within(dir, root string) bool {
	if root == string(filepath.Separator) {
		return dir != root
	}
	return strings.HasPrefix(dir, root+string(filepath.Separator))
}

// ancestors returns the parent directories of dir, outermost first.
func ancestors(dir string) []string {
	var out []string
	for p := dir; p != filepath.Dir(p); {
		p = filepath.Dir(p)
		out = append(out, p)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func lockName(dir string) string {
	sum := sha256.Sum256([]byte(dir))
	return "workdir-" + hex.EncodeToString(sum[:16]) + ".lock"
}
