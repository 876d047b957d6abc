package http11

import (
	"strconv"
)

// parseState tracks where Feed is within one HTTP/1.x message. The driver
// advances through these in order except for chunked bodies, which loop
// between stateChunkSize/stateChunkData/stateChunkTrailer until the
// terminating zero-size chunk.
type parseState int

const (
	stateRequestLine parseState = iota
	stateHeaderLine
	stateBodyFixed
	stateBodyUntilClose
	stateChunkSize
	stateChunkData
	stateChunkCRLF
	stateChunkTrailer
	stateDone
	stateUpgraded
)

// Driver is an incremental HTTP/1.x request parser: bytes are fed in via
// Feed as they arrive off the wire, and message-lifecycle events
// (message-begin, headers-complete, body, message-complete, upgrade) fire
// as soon as the driver has seen enough to know them, rather than waiting
// for the full message. One Driver handles the full lifetime of one
// connection; Reset prepares it for the next pipelined/keep-alive request.
type Driver struct {
	state parseState

	lineBuf []byte // accumulates bytes until a CRLF-terminated line is complete

	msg *IncomingMessage
	// done is the last completed message, kept readable until the next
	// request line starts a new message and returns it to the pool.
	done *IncomingMessage

	contentLength int64
	bodyRemaining int64
	chunkRemaining int64

	hasContentLength    bool
	hasTransferEncoding bool

	// OnRequest fires once headers are complete and msg is ready to be
	// dispatched to a handler, whether or not msg.Upgrade is set. For an
	// upgrade request, the caller should register msg.OnUpgrade from inside
	// OnRequest rather than dispatch a normal response: Feed fires that
	// handler itself, with the leftover bytes, once it reaches the point in
	// the stream where HTTP parsing stops for this connection.
	OnRequest func(msg *IncomingMessage)
	OnError   func(err error)
}

// NewDriver returns a Driver ready to parse the first message on a
// connection.
func NewDriver() *Driver {
	d := &Driver{}
	d.Reset()
	return d
}

// Reset prepares the driver for the next message — called after
// message-complete on a keep-alive connection.
func (d *Driver) Reset() {
	d.state = stateRequestLine
	d.lineBuf = d.lineBuf[:0]
	d.msg = nil
	d.contentLength = 0
	d.bodyRemaining = 0
	d.chunkRemaining = 0
	d.hasContentLength = false
	d.hasTransferEncoding = false
}

// Feed processes a chunk of bytes read off the wire, advancing the state
// machine and firing callbacks as message boundaries are crossed. Feed
// returns the number of bytes consumed; once a message upgrades, Feed stops
// consuming and the caller should treat the remainder of data (data[n:])
// as leftover bytes belonging to the new protocol (spec's upgrade-with-
// leftover-bytes handling).
func (d *Driver) Feed(data []byte) (n int, err error) {
	for n < len(data) {
		switch d.state {
		case stateRequestLine, stateHeaderLine:
			consumed, line, complete, lerr := d.readLine(data[n:])
			n += consumed
			if lerr != nil {
				return n, d.fail(lerr)
			}
			if !complete {
				return n, nil
			}
			if d.state == stateRequestLine {
				if err := d.parseRequestLine(line); err != nil {
					return n, d.fail(err)
				}
				d.state = stateHeaderLine
				continue
			}
			if err := d.feedHeaderLine(line); err != nil {
				return n, d.fail(err)
			}
			continue

		case stateBodyFixed:
			take := d.bodyRemaining
			if take > int64(len(data)-n) {
				take = int64(len(data) - n)
			}
			if take > 0 {
				d.msg.fireBody(data[n : n+int(take)])
				n += int(take)
				d.bodyRemaining -= take
			}
			if d.bodyRemaining == 0 {
				d.completeMessage()
			}

		case stateBodyUntilClose:
			if len(data)-n > 0 {
				d.msg.fireBody(data[n:])
				n = len(data)
			}
			return n, nil

		case stateChunkSize:
			consumed, line, complete, lerr := d.readLine(data[n:])
			n += consumed
			if lerr != nil {
				return n, d.fail(lerr)
			}
			if !complete {
				return n, nil
			}
			d.consumeLineBuf()
			size, perr := parseChunkSize(line)
			if perr != nil {
				return n, d.fail(ErrChunkedEncoding)
			}
			d.chunkRemaining = size
			if size == 0 {
				d.state = stateChunkTrailer
			} else {
				d.state = stateChunkData
			}

		case stateChunkData:
			take := d.chunkRemaining
			if take > int64(len(data)-n) {
				take = int64(len(data) - n)
			}
			if take > 0 {
				d.msg.fireBody(data[n : n+int(take)])
				n += int(take)
				d.chunkRemaining -= take
			}
			if d.chunkRemaining == 0 {
				d.state = stateChunkCRLF
			}

		case stateChunkCRLF:
			consumed, _, complete, lerr := d.readLine(data[n:])
			n += consumed
			if lerr != nil {
				return n, d.fail(lerr)
			}
			if !complete {
				return n, nil
			}
			d.consumeLineBuf()
			d.state = stateChunkSize

		case stateChunkTrailer:
			consumed, line, complete, lerr := d.readLine(data[n:])
			n += consumed
			if lerr != nil {
				return n, d.fail(lerr)
			}
			if !complete {
				return n, nil
			}
			d.consumeLineBuf()
			if len(line) == 0 {
				d.completeMessage()
				continue
			}
			// Trailer headers are accepted and discarded; no component of
			// this driver exposes them.

		case stateUpgraded:
			// The bytes Feed has not yet consumed (data[n:]) are exactly
			// the leftover the spec's upgrade event carries — everything
			// up to here was headers, everything from here on belongs to
			// whatever protocol took over. Fire once, while d.msg still
			// refers to the message that requested the upgrade; a second
			// Feed call after the handoff finds d.msg already cleared and
			// does nothing.
			if d.msg != nil {
				msg := d.msg
				d.msg = nil
				msg.fireUpgrade(data[n:])
			}
			return n, nil

		case stateDone:
			return n, nil
		}
	}
	// An upgrade request whose headers end exactly at the end of data
	// leaves the loop before stateUpgraded is visited; fire the handler
	// here with an empty leftover.
	if d.state == stateUpgraded && d.msg != nil {
		msg := d.msg
		d.msg = nil
		msg.fireUpgrade(data[n:])
	}
	return n, nil
}

// readLine scans data for a CRLF, appending to d.lineBuf across calls so a
// line split across two Feed invocations still parses correctly. It
// returns the bytes consumed from data, the complete line (without CRLF,
// valid only until the next readLine call) when complete is true, and an
// error if the accumulated line exceeds its size budget.
func (d *Driver) readLine(data []byte) (consumed int, line []byte, complete bool, err error) {
	for i, b := range data {
		if b == '\n' {
			end := len(d.lineBuf)
			if end > 0 && d.lineBuf[end-1] == '\r' {
				end--
			}
			line = d.lineBuf[:end]
			consumed = i + 1
			complete = true
			return
		}
		d.lineBuf = append(d.lineBuf, b)
		if len(d.lineBuf) > d.lineSizeLimit() {
			return i + 1, nil, false, d.lineLimitError()
		}
	}
	return len(data), nil, false, nil
}

func (d *Driver) lineSizeLimit() int {
	if d.state == stateRequestLine {
		return MaxRequestLineSize
	}
	return MaxHeaderNameSize + MaxHeaderValueSize
}

func (d *Driver) lineLimitError() error {
	if d.state == stateRequestLine {
		return ErrRequestLineTooLarge
	}
	return ErrHeadersTooLarge
}

func (d *Driver) consumeLineBuf() {
	d.lineBuf = d.lineBuf[:0]
}

func (d *Driver) parseRequestLine(line []byte) error {
	d.consumeLineBuf()

	sp1 := indexByte(line, ' ')
	if sp1 < 0 {
		return ErrInvalidRequestLine
	}
	rest := line[sp1+1:]
	sp2 := indexByte(rest, ' ')
	if sp2 < 0 {
		return ErrInvalidRequestLine
	}
	method := line[:sp1]
	uri := rest[:sp2]
	proto := rest[sp2+1:]

	if len(uri) == 0 || len(uri) > MaxURILength {
		return ErrURITooLong
	}

	major, minor, ok := parseHTTPVersion(proto)
	if !ok {
		return ErrInvalidProtocol
	}

	if d.done != nil {
		ReleaseMessage(d.done)
		d.done = nil
	}
	d.msg = AcquireMessage()
	d.msg.Method = ParseMethodID(method)
	d.msg.MethodName = string(method)
	d.msg.URL = string(uri)
	d.msg.VersionMajor = major
	d.msg.VersionMinor = minor
	if d.msg.Method == MethodUnknown {
		return ErrInvalidMethod
	}
	// HTTP/1.1 defaults to keep-alive; HTTP/1.0 defaults to close. Both are
	// overridden below once the Connection header (if any) is parsed.
	d.msg.KeepAlive = major == 1 && minor == 1
	return nil
}

func (d *Driver) feedHeaderLine(line []byte) error {
	defer d.consumeLineBuf()

	if len(line) == 0 {
		return d.finishHeaders()
	}

	colon := indexByte(line, ':')
	if colon < 0 {
		return ErrInvalidHeader
	}
	name := trimOWS(line[:colon])
	value := trimOWS(line[colon+1:])

	if err := d.msg.Header.Add(name, value); err != nil {
		return err
	}

	switch {
	case bytesEqualCaseInsensitive(name, headerContentLength):
		length, perr := strconv.ParseInt(string(value), 10, 64)
		if perr != nil || length < 0 {
			return ErrInvalidContentLength
		}
		if d.hasContentLength && d.contentLength != length {
			return ErrDuplicateContentLength
		}
		d.hasContentLength = true
		d.contentLength = length

	case bytesEqualCaseInsensitive(name, headerTransferEncoding):
		if bytesEqualCaseInsensitive(trimOWS(value), headerChunked) {
			d.hasTransferEncoding = true
		}

	case bytesEqualCaseInsensitive(name, headerConnection):
		switch {
		case containsTokenCaseInsensitive(value, headerClose):
			d.msg.KeepAlive = false
		case containsTokenCaseInsensitive(value, headerKeepAlive):
			d.msg.KeepAlive = true
		}
		if containsTokenCaseInsensitive(value, headerUpgrade) {
			d.msg.Upgrade = true
		}
	}
	return nil
}

func (d *Driver) finishHeaders() error {
	// RFC 7230 §3.3.3: a message with both Content-Length and
	// Transfer-Encoding is a smuggling vector and must be rejected outright.
	if d.hasContentLength && d.hasTransferEncoding {
		return ErrContentLengthWithTransferEncoding
	}

	msg := d.msg
	if d.OnRequest != nil {
		d.OnRequest(msg)
	}

	switch {
	case msg.Upgrade:
		d.state = stateUpgraded
		return nil
	case d.hasTransferEncoding:
		msg.BodyLength = -1
		d.state = stateChunkSize
	case d.hasContentLength && d.contentLength > 0:
		msg.BodyLength = d.contentLength
		d.bodyRemaining = d.contentLength
		d.state = stateBodyFixed
	case d.hasContentLength:
		msg.BodyLength = 0
		d.completeMessage()
	case methodHasImplicitBody(msg.Method):
		msg.BodyLength = -1
		d.state = stateBodyUntilClose
	default:
		msg.BodyLength = 0
		d.completeMessage()
	}
	return nil
}

func methodHasImplicitBody(method uint8) bool {
	return method == MethodPOST || method == MethodPUT || method == MethodPATCH
}

func (d *Driver) completeMessage() {
	msg := d.msg
	d.state = stateRequestLine
	d.msg = nil
	d.contentLength = 0
	d.bodyRemaining = 0
	d.chunkRemaining = 0
	d.hasContentLength = false
	d.hasTransferEncoding = false
	msg.fireEnd()
	d.done = msg
}

func (d *Driver) fail(err error) error {
	d.state = stateDone
	if d.msg != nil {
		d.msg.fireError(err)
		ReleaseMessage(d.msg)
		d.msg = nil
	}
	if d.OnError != nil {
		d.OnError(err)
	}
	return err
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func trimOWS(b []byte) []byte {
	start := 0
	for start < len(b) && (b[start] == ' ' || b[start] == '\t') {
		start++
	}
	end := len(b)
	for end > start && (b[end-1] == ' ' || b[end-1] == '\t') {
		end--
	}
	return b[start:end]
}

func parseHTTPVersion(proto []byte) (major, minor int, ok bool) {
	const prefix = "HTTP/"
	if len(proto) != len(prefix)+3 || string(proto[:len(prefix)]) != prefix {
		return 0, 0, false
	}
	if proto[len(prefix)+1] != '.' {
		return 0, 0, false
	}
	maj := proto[len(prefix)]
	min := proto[len(prefix)+2]
	if maj < '0' || maj > '9' || min < '0' || min > '9' {
		return 0, 0, false
	}
	if maj != '1' || min > '1' {
		return 0, 0, false
	}
	return int(maj - '0'), int(min - '0'), true
}

func containsTokenCaseInsensitive(value, token []byte) bool {
	// Connection header values are comma-separated tokens, e.g.
	// "keep-alive, Upgrade". Split on commas and compare each trimmed token.
	start := 0
	for i := 0; i <= len(value); i++ {
		if i == len(value) || value[i] == ',' {
			if bytesEqualCaseInsensitive(trimOWS(value[start:i]), token) {
				return true
			}
			start = i + 1
		}
	}
	return false
}

func parseChunkSize(line []byte) (int64, error) {
	// Ignore chunk extensions (";ext=value") per RFC 7230 §4.1.1 — accepting
	// them unvalidated is itself a smuggling vector some servers have
	// shipped, so only the hex size before ';' is parsed.
	if i := indexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = trimOWS(line)
	if len(line) == 0 {
		return 0, ErrChunkedEncoding
	}
	return strconv.ParseInt(string(line), 16, 64)
}
