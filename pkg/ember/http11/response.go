package http11

import (
	"strconv"
	"time"
)

// Sender is the minimal write surface a Response needs from its
// underlying connection — satisfied by *socket.Conn without http11
// importing the socket package.
type Sender interface {
	Write(data []byte) error
	End(data []byte) error
}

var crlf = []byte("\r\n")
var colonSpace = []byte(": ")

// Response builds one HTTP/1.x response over a Sender. Headers may be set
// any time before the first Write/End; the status line and header block
// are written lazily on the first byte of body (or on End with no prior
// Write), matching the teacher's WriteHeader-on-first-Write convention.
type Response struct {
	sender Sender
	Header Header

	status        int
	statusMessage string
	sent          bool

	keepAlive     bool
	sendDate      bool
	contentLength int64
	haveLength    bool

	now func() time.Time
}

// NewResponse returns a Response defaulting to status 200, writing over
// sender. nowFn overrides the clock used for the Date header in tests; a
// nil nowFn uses time.Now.
func NewResponse(sender Sender, nowFn func() time.Time) *Response {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Response{sender: sender, status: 200, keepAlive: true, sendDate: true, now: nowFn}
}

// WriteStatus sets the response status code. Calling it after the first
// Write/End returns ErrHeadersAlreadyWritten.
func (r *Response) WriteStatus(code int) error {
	if r.sent {
		return ErrHeadersAlreadyWritten
	}
	if code < 100 || code > 999 {
		return ErrInvalidStatusCode
	}
	r.status = code
	return nil
}

// SetStatusMessage overrides the status line's reason phrase. Calling it
// after the first Write/End returns ErrHeadersAlreadyWritten. A blank
// message (the default) falls back to statusTextOrDefault(statusCode) in
// prepareSend.
func (r *Response) SetStatusMessage(msg string) error {
	if r.sent {
		return ErrHeadersAlreadyWritten
	}
	r.statusMessage = msg
	return nil
}

// StatusMessage returns the reason phrase set via SetStatusMessage, or ""
// if the caller hasn't overridden it.
func (r *Response) StatusMessage() string {
	return r.statusMessage
}

// SetSendDate controls whether prepareSend emits the Date header; it
// defaults to true (spec §3: "sendDate (default true)").
func (r *Response) SetSendDate(send bool) {
	r.sendDate = send
}

// SetKeepAlive controls whether the response sends "Connection: close"
// (keepAlive false) or no Connection header at all (keepAlive true).
// Callers normally set this from the request's KeepAlive field before the
// first Write.
func (r *Response) SetKeepAlive(keepAlive bool) {
	r.keepAlive = keepAlive
}

// KeepAlive reports the connection-persistence decision this response
// will advertise (or already has). A handler may call SetKeepAlive to
// override the request's default, so callers needing the final decision
// (e.g. to decide whether to reset the connection for another request)
// should read this after the handler runs rather than re-deriving it from
// the request.
func (r *Response) KeepAlive() bool {
	return r.keepAlive
}

// SetContentLength sets an explicit Content-Length, suppressing the
// implicit chunked-by-omission behavior of a response with no length
// known up front.
func (r *Response) SetContentLength(n int64) {
	r.contentLength = n
	r.haveLength = true
}

// Write sends body bytes, preparing and flushing the status line and
// headers first if this is the first call.
func (r *Response) Write(data []byte) error {
	if !r.sent {
		if err := r.prepareSend(); err != nil {
			return err
		}
	}
	return r.sender.Write(data)
}

// End sends the final chunk of the response body. On a keep-alive
// response this is just the last Write — the underlying connection stays
// open for the next pipelined request. On a non-keep-alive response it is
// sent as the connection's end-flagged chunk, so the connection closes
// once it reaches the wire (spec §4.5: end-flagged send triggers close).
func (r *Response) End(data []byte) error {
	if !r.sent {
		if !r.haveLength {
			r.SetContentLength(int64(len(data)))
		}
		if err := r.prepareSend(); err != nil {
			return err
		}
	}
	if r.keepAlive {
		return r.sender.Write(data)
	}
	return r.sender.End(data)
}

// prepareSend writes the status line and a fixed-order header block:
// Date, Server, Connection (only when closing), Content-Length (if
// known and non-zero), then every user-set header in insertion order, followed by the
// terminating blank line. Order matches the teacher's response writer so
// a byte-for-byte comparison against a reference client is stable across
// runs.
func (r *Response) prepareSend() error {
	r.sent = true

	message := r.statusMessage
	if message == "" {
		message = statusTextOrDefault(r.status)
	}
	statusLine := "HTTP/1.1 " + strconv.Itoa(r.status) + " " + message + "\r\n"
	if err := r.sender.Write([]byte(statusLine)); err != nil {
		return err
	}

	if r.sendDate {
		if err := r.writeHeaderLine(headerDate, []byte(rfc1123GMT(r.now()))); err != nil {
			return err
		}
	}
	if !r.Header.Has(headerServer) {
		if err := r.writeHeaderLine(headerServer, []byte(ServerName)); err != nil {
			return err
		}
	}

	// Spec §4.5 step 4: "Connection: close" is emitted only when
	// sendCloseHeader (i.e. !keepAlive); a keep-alive response sends no
	// Connection header at all, since HTTP/1.1 keep-alive is the implicit
	// default and scenario 2's exact byte sequence omits the header.
	if !r.keepAlive {
		if err := r.writeHeaderLine(headerConnection, headerClose); err != nil {
			return err
		}
	}

	// Spec §4.5 step 5: Content-Length is emitted only when contentLength >
	// 0 — a zero-length body (e.g. a 204, or End(nil)) omits the header
	// entirely rather than sending "Content-Length: 0".
	if r.haveLength && r.contentLength > 0 {
		if err := r.writeHeaderLine(headerContentLength, []byte(strconv.FormatInt(r.contentLength, 10))); err != nil {
			return err
		}
	}

	var writeErr error
	r.Header.VisitAll(func(name, value []byte) bool {
		if bytesEqualCaseInsensitive(name, headerDate) ||
			bytesEqualCaseInsensitive(name, headerConnection) ||
			bytesEqualCaseInsensitive(name, headerContentLength) {
			return true // owned by the fixed-position lines above; a user-set value under these names is not written
		}
		if writeErr = r.writeHeaderLine(name, value); writeErr != nil {
			return false
		}
		return true
	})
	if writeErr != nil {
		return writeErr
	}

	return r.sender.Write(crlf)
}

func (r *Response) writeHeaderLine(name, value []byte) error {
	if err := r.sender.Write(name); err != nil {
		return err
	}
	if err := r.sender.Write(colonSpace); err != nil {
		return err
	}
	if err := r.sender.Write(value); err != nil {
		return err
	}
	return r.sender.Write(crlf)
}

// Reset prepares the Response for reuse on the next keep-alive request.
func (r *Response) Reset(sender Sender) {
	r.sender = sender
	r.Header.Reset()
	r.status = 200
	r.statusMessage = ""
	r.sent = false
	r.keepAlive = true
	r.sendDate = true
	r.contentLength = 0
	r.haveLength = false
	if r.now == nil {
		r.now = time.Now
	}
}
