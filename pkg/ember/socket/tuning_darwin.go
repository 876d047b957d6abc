//go:build darwin

package socket

import "golang.org/x/sys/unix"

// applyPlatformConnOptions applies Darwin-specific per-connection options.
func applyPlatformConnOptions(fd int, cfg *TuningConfig) {
	// Prevent SIGPIPE on write to a closed socket; Linux uses MSG_NOSIGNAL
	// on send() instead.
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)

	if cfg.KeepAlive {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPALIVE, 60)
	}
}

// applyReusePort sets SO_REUSEPORT on a listening socket's file descriptor.
func applyReusePort(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
}
