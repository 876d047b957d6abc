package socket

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/mpilman/ember/pkg/ember/event"
	"github.com/valyala/bytebufferpool"
)

// ErrConnectionClosed is returned by Write/End calls made after the
// connection has sent its terminal chunk or been closed.
var ErrConnectionClosed = errors.New("socket: connection closed")

// minReadBufferSize is the minimum read buffer capacity the spec requires
// (§3 Connection invariants: "a reusable read buffer of capacity ≥ 1024
// bytes").
const minReadBufferSize = 1024

// DataHandler, ErrorHandler, DrainHandler and CloseHandler are the
// signatures a Conn dispatches for its four event kinds.
type (
	DataHandler  func(data []byte)
	ErrorHandler func(err error)
	DrainHandler func()
	CloseHandler func(hadError bool)
)

// connEventKind is the Dispatcher key type for a Conn's event streams. A
// Conn only ever has one stream per kind, so the key space is a single
// value rather than a set of named kinds.
type connEventKind struct{}

const connKind connEventKind = connEventKind{}

// sendJob is one queued (bytes, endFlag) pair, per spec §3.
type sendJob struct {
	buf *bytebufferpool.ByteBuffer
	end bool
}

// Conn wraps one accepted net.Conn with the event-driven read/write model
// spec §4.3 describes: a single outstanding read at a time, an ordered FIFO
// send queue with at most one outstanding write at a time, and
// data/error/drain/close events delivered in order.
type Conn struct {
	nc net.Conn

	// Each event kind gets its own Dispatcher, as event's package doc
	// describes; connEventKind is the single kind every Conn registers
	// under (a Conn has exactly one stream of each event, never several
	// named variants of "data" or "close").
	dataDispatch  event.Dispatcher[connEventKind, DataHandler]
	errDispatch   event.Dispatcher[connEventKind, ErrorHandler]
	drainDispatch event.Dispatcher[connEventKind, DrainHandler]
	closeDispatch event.Dispatcher[connEventKind, CloseHandler]

	queueMu  sync.Mutex
	queue    []*sendJob
	draining bool // insideSend; guarded by queueMu so the 0→1 transition and the drain-exit check can't race

	closed    atomic.Bool
	closeOnce sync.Once
	detached  atomic.Bool

	readBuf []byte
}

// NewConn wraps nc for event-driven use. Callers normally obtain a Conn
// from Listener's OnConnection callback rather than constructing one
// directly.
func NewConn(nc net.Conn) *Conn {
	return &Conn{
		nc:      nc,
		readBuf: make([]byte, minReadBufferSize),
	}
}

// On registers cb for the given event kind. Each Conn event kind has its
// own concrete handler signature, so registration is four typed methods
// over four Dispatchers rather than one generic method — matching
// socket.on(data|error|drain|close, handler) while reusing event.Dispatcher
// for the bookkeeping each one needs.

// OnData registers a data handler; handlers fire in registration order.
func (c *Conn) OnData(cb DataHandler) { c.dataDispatch.On(connKind, cb) }

// OnError registers an error handler.
func (c *Conn) OnError(cb ErrorHandler) { c.errDispatch.On(connKind, cb) }

// OnDrain registers a drain handler.
func (c *Conn) OnDrain(cb DrainHandler) { c.drainDispatch.On(connKind, cb) }

// OnClose registers a close handler. close fires at most once and is
// always the last event observed on a Conn (spec §3/§5).
func (c *Conn) OnClose(cb CloseHandler) { c.closeDispatch.On(connKind, cb) }

// ClearData detaches all data handlers — used by the HTTP upgrade path
// (spec §4.4): once a connection upgrades, its bytes no longer belong to
// the HTTP layer, and whatever protocol takes over registers its own
// OnData handler in their place.
func (c *Conn) ClearData() { c.dataDispatch.Clear(connKind) }

// startReadLoop begins the single outstanding-read cycle described in
// spec §4.3: read, fire data, re-arm, until error or close.
func (c *Conn) startReadLoop() {
	go c.readLoop()
}

func (c *Conn) readLoop() {
	for {
		if c.closed.Load() || c.detached.Load() {
			return
		}
		n, err := c.nc.Read(c.readBuf)
		if err != nil {
			c.fireError(err)
			c.closeWithError(true)
			return
		}
		if n > 0 {
			for _, h := range c.dataDispatch.Snapshot(connKind) {
				h(c.readBuf[:n])
			}
		}
	}
}

func (c *Conn) fireError(err error) {
	// A read or write that fails because the socket was already closed
	// must not fire error after close has fired.
	if c.closed.Load() {
		return
	}
	for _, h := range c.errDispatch.Snapshot(connKind) {
		h(err)
	}
}

// Write enqueues data with endFlag=false and starts a send if none is in
// flight. Per spec §9's resolved Open Question, a send is only kicked off
// on the queue's 0→1 transition (matching the upstream reference's
// `if (sendBuffer.size() == 1) do_send()`).
func (c *Conn) Write(data []byte) error {
	return c.enqueue(data, false)
}

// End enqueues data with endFlag=true. Once an end-flagged element has been
// sent, the connection closes and further Write/End calls fail with
// ErrConnectionClosed.
func (c *Conn) End(data []byte) error {
	return c.enqueue(data, true)
}

func (c *Conn) enqueue(data []byte, end bool) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	buf := bytebufferpool.Get()
	buf.Set(data)
	job := &sendJob{buf: buf, end: end}

	c.queueMu.Lock()
	c.queue = append(c.queue, job)
	shouldStart := !c.draining
	if shouldStart {
		c.draining = true
	}
	c.queueMu.Unlock()

	if shouldStart {
		go c.drainQueue()
	}
	return nil
}

// BufferSize returns the total queued byte count across all pending sends,
// the backpressure indicator described in spec §4.3.
func (c *Conn) BufferSize() int {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	total := 0
	for _, j := range c.queue {
		total += j.buf.Len()
	}
	return total
}

// drainQueue is the send loop: write the head job's bytes (possibly in
// multiple Write calls to the underlying net.Conn), then either close (end
// flag) or pop and continue. c.draining is cleared under the same lock
// that observes the queue going empty, so an enqueue racing the end of a
// drain either lands before that check (and this loop picks the job up)
// or after c.draining flips false (and enqueue starts a fresh drain) —
// there is no window where a job can be added to the queue without a
// drain loop owning it.
func (c *Conn) drainQueue() {
	for {
		c.queueMu.Lock()
		if len(c.queue) == 0 {
			c.draining = false
			c.queueMu.Unlock()
			return
		}
		job := c.queue[0]
		c.queueMu.Unlock()

		if err := c.writeAll(job.buf.B); err != nil {
			job.buf.Reset()
			bytebufferpool.Put(job.buf)
			c.queueMu.Lock()
			c.draining = false
			c.queueMu.Unlock()
			c.fireError(err)
			c.closeWithError(true)
			return
		}

		c.queueMu.Lock()
		c.queue = c.queue[1:]
		empty := len(c.queue) == 0
		if empty {
			c.draining = false
		}
		c.queueMu.Unlock()

		job.buf.Reset()
		bytebufferpool.Put(job.buf)

		if job.end {
			c.closeWithError(false)
			return
		}
		if empty {
			for _, h := range c.drainDispatch.Snapshot(connKind) {
				h()
			}
			return
		}
	}
}

func (c *Conn) writeAll(b []byte) error {
	for len(b) > 0 {
		n, err := c.nc.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// Close closes the connection gracefully if it is still open, then fires
// close(hadError=false). Calling Close more than once is a no-op; the
// underlying socket is closed and close fires exactly once regardless of
// how many times Close is called.
func (c *Conn) Close() error {
	return c.closeWithError(false)
}

func (c *Conn) closeWithError(hadError bool) error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = c.nc.Close()
		for _, h := range c.closeDispatch.Snapshot(connKind) {
			h(hadError)
		}
	})
	return err
}

// Detach stops this Conn's read loop and hands the raw net.Conn to the
// caller, which takes over reading and writing directly. Used when an
// upgraded protocol (e.g. WebSocket via a third-party framing library)
// needs unmediated access to the socket rather than Conn's event API. Must
// be called synchronously from within a data/close handler so the read
// loop observes the detached flag before it would otherwise call Read
// again.
func (c *Conn) Detach() net.Conn {
	c.detached.Store(true)
	return c.nc
}

// RemoteAddr/LocalAddr expose the underlying net.Conn addresses.
func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }
func (c *Conn) LocalAddr() net.Addr  { return c.nc.LocalAddr() }
