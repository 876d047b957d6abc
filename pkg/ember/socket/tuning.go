// Package socket implements the byte-stream layer: Listener accepts
// connections, Conn owns the read buffer and ordered send queue described
// in spec §4.2/§4.3. This file carries the cross-platform socket tuning
// knobs; platform-specific options (including SO_REUSEPORT, which needs
// golang.org/x/sys/unix) live in tuning_linux.go / tuning_darwin.go /
// tuning_other.go.
package socket

import (
	"net"
	"syscall"
)

// TuningConfig controls the socket options applied to accepted connections
// and listening sockets. Zero value means "use system defaults".
type TuningConfig struct {
	// NoDelay disables Nagle's algorithm (TCP_NODELAY). Default: true.
	NoDelay bool

	// RecvBuffer/SendBuffer set SO_RCVBUF/SO_SNDBUF in bytes. 0 leaves the
	// system default in place.
	RecvBuffer int
	SendBuffer int

	// KeepAlive enables SO_KEEPALIVE on accepted connections.
	KeepAlive bool

	// ReusePort enables SO_REUSEPORT on listening sockets, so other sockets
	// (in this or another process) may bind the same (host, port). Listener
	// itself still binds one acceptor per resolved address. Only honored on
	// platforms with applyReusePort support (linux, darwin); ignored
	// elsewhere.
	ReusePort bool
}

// DefaultTuningConfig returns the recommended configuration for HTTP
// workloads.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		NoDelay:    true,
		RecvBuffer: 256 * 1024,
		SendBuffer: 256 * 1024,
		KeepAlive:  true,
	}
}

// applyConn applies tuning options to an accepted connection. Connection
// types other than *net.TCPConn are left untouched.
func applyConn(conn net.Conn, cfg *TuningConfig) error {
	if cfg == nil {
		cfg = DefaultTuningConfig()
	}
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		return err
	}

	var lastErr error
	err = rawConn.Control(func(fd uintptr) {
		if cfg.NoDelay {
			if e := syscall.SetsockoptInt(int(fd), syscall.IPPROTO_TCP, syscall.TCP_NODELAY, 1); e != nil {
				lastErr = e
				return
			}
		}
		if cfg.RecvBuffer > 0 {
			_ = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_RCVBUF, cfg.RecvBuffer)
		}
		if cfg.SendBuffer > 0 {
			_ = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_SNDBUF, cfg.SendBuffer)
		}
		if cfg.KeepAlive {
			_ = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_KEEPALIVE, 1)
		}
		applyPlatformConnOptions(int(fd), cfg)
	})
	if err != nil {
		return err
	}
	return lastErr
}

// listenConfig builds a net.ListenConfig whose Control hook applies
// SO_REUSEPORT (when requested) before the kernel binds the socket.
func listenConfig(cfg *TuningConfig) net.ListenConfig {
	if cfg == nil {
		cfg = DefaultTuningConfig()
	}
	return net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			if !cfg.ReusePort {
				return nil
			}
			var ctrlErr error
			err := c.Control(func(fd uintptr) {
				ctrlErr = applyReusePort(int(fd))
			})
			if err != nil {
				return err
			}
			return ctrlErr
		},
	}
}
