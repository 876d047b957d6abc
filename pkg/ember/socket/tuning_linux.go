//go:build linux

package socket

import "golang.org/x/sys/unix"

// applyPlatformConnOptions applies Linux-specific per-connection options.
func applyPlatformConnOptions(fd int, cfg *TuningConfig) {
	if cfg.KeepAlive {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, 60)
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, 10)
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPCNT, 3)
	}
}

// applyReusePort sets SO_REUSEPORT on a listening socket's file descriptor,
// letting multiple sockets bind the same (host, port) pair.
func applyReusePort(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
}
