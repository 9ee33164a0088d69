//go:build unix

package server

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Running reports whether the daemon process still exists.
func (st *State) Running() bool {
	if st == nil || st.PID <= 0 {
		return false
	}
	err := unix.Kill(st.PID, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Terminate asks the daemon to shut down. A process that is already gone
// is not an error.
func (st *State) Terminate() error {
	if st == nil || st.PID <= 0 {
		return nil
	}
	if err := unix.Kill(st.PID, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}
