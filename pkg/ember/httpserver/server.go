// Package httpserver wires a socket.Listener to the http11 driver: it is
// the event-driven equivalent of net/http's Server, dispatching one
// Handler call per completed request and one UpgradeHandler call per
// upgraded connection.
package httpserver

import (
	"context"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/mpilman/ember/pkg/ember/http11"
	"github.com/mpilman/ember/pkg/ember/socket"
)

// Handler processes one completed request, writing a response over w.
type Handler func(w *http11.Response, r *http11.IncomingMessage)

// UpgradeHandler takes over a connection after an Upgrade request, given
// the IncomingMessage that requested it and any bytes already read past
// the handshake that belong to the new protocol.
type UpgradeHandler func(conn *socket.Conn, r *http11.IncomingMessage, leftover []byte)

// Config controls Server behavior. The zero value is usable;
// DefaultConfig documents the values DefaultConfig fills in.
type Config struct {
	// Handler is invoked once per completed request. Required.
	Handler Handler

	// Upgrade is invoked for requests that negotiate a protocol upgrade.
	// A nil Upgrade causes upgrade requests to be answered with 426 Upgrade
	// Required and the connection closed.
	Upgrade UpgradeHandler

	// IdleTimeout is recorded in the Server's config; the server sets no
	// read or idle deadline from it, so a keep-alive connection stays open
	// until the peer or a handler closes it. Default: http11.KeepAliveIdleTimeout.
	IdleTimeout time.Duration

	// Tuning controls the socket options applied to accepted connections.
	// A nil Tuning uses socket.DefaultTuningConfig.
	Tuning *socket.TuningConfig

	// Logger receives structured records for accept/parse/handler errors.
	// A nil Logger uses slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with production-sensible defaults; callers
// still must set Handler.
func DefaultConfig() Config {
	return Config{
		IdleTimeout: http11.KeepAliveIdleTimeout,
		Tuning:      socket.DefaultTuningConfig(),
		Logger:      slog.Default(),
	}
}

// Stats tracks server-wide counters, read without locking via atomics —
// the same shape the teacher's server package exposes for its BaseServer.
type Stats struct {
	TotalConnections  atomic.Uint64
	ActiveConnections atomic.Int64
	TotalRequests     atomic.Uint64
	RequestErrors     atomic.Uint64
	StartTime         time.Time
}

// Server accepts connections via a socket.Listener and drives each one
// through an http11.Driver, dispatching completed requests to cfg.Handler.
type Server struct {
	cfg Config
	ln  *socket.Listener

	Stats Stats
}

// New constructs a Server. cfg.Handler must be non-nil before Listen is
// called.
func New(cfg Config) *Server {
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = http11.KeepAliveIdleTimeout
	}
	if cfg.Tuning == nil {
		cfg.Tuning = socket.DefaultTuningConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		cfg:   cfg,
		Stats: Stats{StartTime: time.Now()},
	}
}

// Listen binds host:port and begins accepting connections, each driven
// independently through its own http11.Driver. Listen returns once every
// acceptor is bound; connections are handled on background goroutines.
func (s *Server) Listen(ctx context.Context, host string, port int) error {
	ln := socket.NewListener(s.cfg.Tuning)
	ln.OnConnection(func(conn *socket.Conn) {
		s.Stats.TotalConnections.Add(1)
		s.Stats.ActiveConnections.Add(1)
		s.handleConnection(conn)
	})
	ln.OnListenError(func(addr net.Addr, err error) {
		s.cfg.Logger.Error("accept failed", "addr", addr.String(), "error", err)
	})

	if err := ln.Listen(ctx, host, port); err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Addrs returns the bound address(es) of the underlying listener.
func (s *Server) Addrs() []string {
	if s.ln == nil {
		return nil
	}
	addrs := s.ln.Addrs()
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

// handleConnection wires one accepted connection to a fresh http11.Driver:
// data events feed the driver, completed requests dispatch to cfg.Handler,
// and upgrade requests hand the connection off to cfg.Upgrade with any
// leftover post-handshake bytes.
func (s *Server) handleConnection(conn *socket.Conn) {
	driver := http11.NewDriver()
	upgraded := false

	driver.OnRequest = func(msg *http11.IncomingMessage) {
		if msg.Upgrade {
			// Register on the message itself rather than dispatch a normal
			// response: Feed fires this once it reaches the point in the
			// stream where HTTP parsing stops, handing back exactly the
			// leftover bytes that belong to the new protocol (spec §4.4).
			msg.OnUpgrade(func(leftover []byte) {
				upgraded = true
				conn.ClearData()
				if s.cfg.Upgrade == nil {
					s.rejectUpgrade(conn)
					return
				}
				s.cfg.Upgrade(conn, msg, leftover)
			})
			return
		}
		s.Stats.TotalRequests.Add(1)
		// Dispatch only once the driver has fully parsed this message
		// (message-complete), never from within OnRequest itself: Feed is
		// still unwinding finishHeaders' own state-transition switch at
		// headers-complete time, and dispatch's driver.Reset() would stomp
		// on the very d.msg/d.state fields that switch is about to read.
		// completeMessage fires msg.fireEnd() only after it has already put
		// the driver back in a clean stateRequestLine/d.msg==nil state, so
		// by the time this runs, mutating driver state again is safe.
		msg.OnEnd(func() {
			s.dispatch(conn, driver, msg)
		})
	}
	driver.OnError = func(err error) {
		s.Stats.RequestErrors.Add(1)
		s.cfg.Logger.Warn("request parse error", "remote", conn.RemoteAddr().String(), "error", err)
		_ = conn.Close()
	}

	conn.OnData(func(data []byte) {
		if upgraded {
			return
		}
		if _, err := driver.Feed(data); err != nil {
			return // OnError already closed the connection
		}
	})

	conn.OnClose(func(hadError bool) {
		s.Stats.ActiveConnections.Add(-1)
	})
}

func (s *Server) dispatch(conn *socket.Conn, driver *http11.Driver, msg *http11.IncomingMessage) {
	resp := http11.AcquireResponse(conn)
	resp.SetKeepAlive(msg.KeepAlive)

	func() {
		defer func() {
			if r := recover(); r != nil {
				s.Stats.RequestErrors.Add(1)
				s.cfg.Logger.Error("handler panicked", "remote", conn.RemoteAddr().String(), "panic", r)
				resp.SetKeepAlive(false)
				_ = resp.WriteStatus(500)
				_ = resp.End(nil)
				_ = conn.Close()
			}
		}()
		s.cfg.Handler(resp, msg)
	}()

	keepAlive := resp.KeepAlive()
	http11.ReleaseResponse(resp)
	if keepAlive {
		// Safe here: dispatch only runs from msg.OnEnd (see OnRequest above),
		// which completeMessage fires after it has already put the driver
		// back in its stateRequestLine/d.msg==nil rest state. Calling Reset
		// here is a no-op re-affirmation of that state, not a mutation of an
		// in-flight parse.
		driver.Reset()
	}
}

func (s *Server) rejectUpgrade(conn *socket.Conn) {
	resp := http11.AcquireResponse(conn)
	_ = resp.WriteStatus(426)
	resp.SetKeepAlive(false)
	_ = resp.End(nil)
	http11.ReleaseResponse(resp)
}
