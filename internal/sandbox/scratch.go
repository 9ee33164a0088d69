package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// newScratch creates an empty private directory under runtimeDir to back
// the sandbox's /tmp.
func newScratch(runtimeDir string) (string, error) {
	parent := filepath.Join(runtimeDir, "scratch")
	if err := os.MkdirAll(parent, 0o700); err != nil {
		return "", fmt.Errorf("create scratch parent: %w", err)
	}
	dir, err := os.MkdirTemp(parent, "run-")
	if err != nil {
		return "", fmt.Errorf("create scratch: %w", err)
	}
	return dir, nil
}

// removeScratch deletes dir, restoring owner write permission on any
// directory the sandboxed command made read-only.
func removeScratch(dir string) error {
	if err := os.RemoveAll(dir); err == nil {
		return nil
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			_ = os.Chmod(path, 0o700)
		}
		return nil
	})
	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove scratch: %w", err)
	}
	return nil
}
