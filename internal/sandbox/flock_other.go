//go:build !unix

package sandbox

import "fmt"

func lockFile(path string, exclusive bool) (func() error, error) {
	return nil, fmt.Errorf("%w: file locks are not supported on this platform", ErrSandboxUnavailable)
}
