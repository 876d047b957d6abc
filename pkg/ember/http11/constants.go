// Package http11 implements an incremental HTTP/1.x message driver: bytes
// arrive in arbitrary chunks from a socket.Conn's data event and are fed to
// Feed, which emits message-lifecycle events as soon as enough of the
// message is known, mirroring the way on_url/on_header_field/
// on_headers_complete/on_body/on_message_complete fire in a callback-driven
// HTTP parser rather than waiting for the whole message to arrive.
package http11

import "time"

// Size limits applied while parsing. Exceeding any of these aborts the
// message with an error rather than growing buffers without bound, except
// MaxHeaderBlockSize, which the driver does not check: the header block is
// bounded per line (MaxHeaderNameSize+MaxHeaderValueSize) and by
// MaxHeaderCount.
const (
	MaxRequestLineSize = 8 * 1024
	MaxHeaderBlockSize = 64 * 1024
	MaxHeaderNameSize  = 256
	MaxHeaderValueSize = 8 * 1024
	MaxURILength       = 8 * 1024
	MaxHeaderCount     = 100
)

// KeepAliveIdleTimeout is the default value of httpserver.Config.IdleTimeout.
// No idle deadline is applied to connections from it.
const KeepAliveIdleTimeout = 75 * time.Second

var (
	headerContentLength    = []byte("Content-Length")
	headerContentType      = []byte("Content-Type")
	headerConnection       = []byte("Connection")
	headerKeepAlive        = []byte("keep-alive")
	headerClose            = []byte("close")
	headerTransferEncoding = []byte("Transfer-Encoding")
	headerChunked          = []byte("chunked")
	headerUpgrade          = []byte("Upgrade")
	headerDate             = []byte("Date")
	headerServer           = []byte("Server")
)

// ServerName is the value written in the Server response header.
const ServerName = "Ember/0.1"

// statusText maps common status codes to their reason phrase. Codes absent
// from this table still produce a well-formed status line via
// statusTextOrDefault.
var statusText = map[int]string{
	100: "Continue",
	101: "Switching Protocols",
	200: "OK",
	201: "Created",
	202: "Accepted",
	203: "Non-Authoritative Information",
	204: "No Content",
	205: "Reset Content",
	206: "Partial Content",
	300: "Multiple Choices",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	307: "Temporary Redirect",
	308: "Permanent Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	408: "Request Timeout",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Precondition Failed",
	413: "Payload Too Large",
	414: "URI Too Long",
	415: "Unsupported Media Type",
	426: "Upgrade Required",
	429: "Too Many Requests",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
}

// statusTextOrDefault returns the registered reason phrase for code, or the
// literal string "Unknown" for any code this table doesn't name — spec.md
// §4.5's default status message table: "Unknown" for anything absent from
// it, not a bucketed guess by status class.
func statusTextOrDefault(code int) string {
	if text, ok := statusText[code]; ok {
		return text
	}
	return "Unknown"
}
