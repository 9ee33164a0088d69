//go:build !unix

package server

import "errors"

// Running always reports false where the daemon is unsupported.
func (st *State) Running() bool { return false }

// Terminate is unsupported on this platform.
func (st *State) Terminate() error {
	return errors.New("daemon mode requires a unix platform")
}
