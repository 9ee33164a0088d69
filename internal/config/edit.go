package config

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/xdg/warden/internal/clog"
)

// Edit opens the configuration file in $EDITOR (default vi), creating the
// default template first if needed. The edited file is validated
// afterwards; problems are logged, not returned, so the user can fix them
// later.
func Edit(path string) error {
	if path == "" {
		path = Path()
	}
	if _, err := WriteDefault(path); err != nil {
		return fmt.Errorf("create default config: %w", err)
	}

	if err := openEditor(path); err != nil {
		return err
	}

	if _, err := Load(path); err != nil {
		clog.Warn("config has errors after edit: %v", err)
	}
	return nil
}

func openEditor(path string) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %q failed: %w", editor, err)
	}
	return nil
}
