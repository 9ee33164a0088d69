// Package pathutil provides path manipulation utilities.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome replaces a leading ~ in path with the user's home directory.
// If the home directory cannot be determined, the path is returned unchanged.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// ErrInvalidWorkdir is returned by ResolveWorkdir for unusable directories.
var ErrInvalidWorkdir = errors.New("invalid working directory")

// ResolveWorkdir returns the canonical form of a working directory: absolute,
// cleaned, with symlinks resolved. The directory must exist and must not be
// the filesystem root.
func ResolveWorkdir(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidWorkdir)
	}
	if !filepath.IsAbs(dir) {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidWorkdir, dir)
	}

	resolved, err := filepath.EvalSymlinks(filepath.Clean(dir))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidWorkdir, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidWorkdir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %q is not a directory", ErrInvalidWorkdir, dir)
	}
	if resolved == string(filepath.Separator) {
		return "", fmt.Errorf("%w: the filesystem root cannot be writable", ErrInvalidWorkdir)
	}
	return resolved, nil
}
