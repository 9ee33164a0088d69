// Package main is the entry point for the warden CLI.
package main

import (
	"errors"
	"os"

	"github.com/xdg/warden/internal/cmd"
	"github.com/xdg/warden/internal/sandbox"
)

func main() {
	// Must run before anything else: the sandbox re-executes this binary
	// to apply resource limits before handing over to bubblewrap.
	sandbox.MaybeInit()

	if err := cmd.Execute(); err != nil {
		var exitErr *cmd.ExitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
