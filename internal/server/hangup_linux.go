package server

import (
	"context"
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// hangupPollMillis bounds how long awaitClose waits before rechecking ctx.
const hangupPollMillis = 200

// awaitClose returns once the peer has closed both directions of conn or
// ctx is done. A Unix socket whose peer only shut down writing stays
// readable at EOF but does not report POLLHUP.
func awaitClose(ctx context.Context, conn net.Conn) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return
	}
	for ctx.Err() == nil {
		var hup bool
		var pollErr error
		err := raw.Control(func(fd uintptr) {
			fds := []unix.PollFd{{Fd: int32(fd)}}
			var n int
			n, pollErr = unix.Poll(fds, hangupPollMillis)
			hup = n > 0 && fds[0].Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0
		})
		if err != nil || hup {
			return
		}
		if pollErr != nil && !errors.Is(pollErr, unix.EINTR) {
			return
		}
	}
}
