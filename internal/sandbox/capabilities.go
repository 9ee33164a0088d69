package sandbox

import (
	"fmt"
	"strings"
)

// Capabilities describes what the host offers the sandbox backend.
type Capabilities struct {
	Platform       string
	Backend        string
	Kernel         string
	BwrapPath      string
	BwrapSetuid    bool
	UserNamespaces bool
	Root           bool
	// Problems lists every reason the backend cannot be used.
	Problems []string
}

// Usable reports whether sandboxed launches can succeed.
func (c Capabilities) Usable() bool {
	return len(c.Problems) == 0
}

// Err returns nil when usable and an ErrSandboxUnavailable otherwise.
func (c Capabilities) Err() error {
	if c.Usable() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrSandboxUnavailable, strings.Join(c.Problems, "; "))
}
