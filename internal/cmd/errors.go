package cmd

import (
	"fmt"

	"github.com/xdg/warden/internal/engine"
	"github.com/xdg/warden/internal/supervisor"
)

// Process exit codes for commands that report an execution outcome.
const (
	exitFailed   = 1
	exitBlocked  = 2
	exitTimedOut = 124
)

// ExitCodeError makes main exit with Code without printing anything.
type ExitCodeError struct {
	Code int
}

// NewExitCodeError returns an ExitCodeError for code.
func NewExitCodeError(code int) *ExitCodeError {
	return &ExitCodeError{Code: code}
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// exitCode maps a response to the exit code of "warden exec": the
// command's own code when it completed.
func exitCode(resp *engine.Response) int {
	switch resp.Status() {
	case supervisor.Completed:
		if resp.Result.ExitCode != nil {
			return *resp.Result.ExitCode
		}
		return 0
	case supervisor.Blocked:
		return exitBlocked
	case supervisor.TimedOut:
		return exitTimedOut
	default:
		return exitFailed
	}
}

// exitWith returns nil for 0 and an ExitCodeError otherwise.
func exitWith(code int) error {
	if code == 0 {
		return nil
	}
	return NewExitCodeError(code)
}
