package http11

import "errors"

// Parser errors.
var (
	// ErrInvalidRequestLine indicates the request line is malformed.
	// Request line format: METHOD PATH PROTOCOL\r\n
	ErrInvalidRequestLine = errors.New("http11: invalid request line")

	// ErrInvalidMethod indicates an unsupported or malformed HTTP method.
	ErrInvalidMethod = errors.New("http11: invalid HTTP method")

	// ErrInvalidProtocol indicates an unsupported protocol version. Only
	// HTTP/1.0 and HTTP/1.1 are recognized.
	ErrInvalidProtocol = errors.New("http11: invalid or unsupported protocol version")

	// ErrInvalidHeader indicates a malformed header line.
	ErrInvalidHeader = errors.New("http11: invalid HTTP header")

	// ErrHeaderTooLarge indicates a header name or value exceeds size limits.
	ErrHeaderTooLarge = errors.New("http11: header name or value too large")

	// ErrRequestLineTooLarge indicates the request line exceeds MaxRequestLineSize.
	ErrRequestLineTooLarge = errors.New("http11: request line too large")

	// ErrHeadersTooLarge indicates a single header line exceeds
	// MaxHeaderNameSize+MaxHeaderValueSize bytes.
	ErrHeadersTooLarge = errors.New("http11: headers too large")

	// ErrChunkedEncoding indicates an error parsing chunked transfer encoding.
	ErrChunkedEncoding = errors.New("http11: chunked encoding error")

	// ErrInvalidContentLength indicates a Content-Length header is malformed.
	ErrInvalidContentLength = errors.New("http11: invalid Content-Length")

	// ErrContentLengthWithTransferEncoding indicates a request carries both
	// headers. RFC 7230 §3.3.3 requires this be rejected to prevent
	// request smuggling.
	ErrContentLengthWithTransferEncoding = errors.New("http11: request has both Content-Length and Transfer-Encoding")

	// ErrDuplicateContentLength indicates multiple Content-Length headers
	// with differing values, also an RFC 7230 §3.3.3 smuggling vector.
	ErrDuplicateContentLength = errors.New("http11: duplicate Content-Length headers with different values")

	// ErrURITooLong indicates the request target exceeds MaxURILength.
	ErrURITooLong = errors.New("http11: URI too long")
)

// Response errors.
var (
	// ErrHeadersAlreadyWritten indicates a header was set after the response
	// was already sent.
	ErrHeadersAlreadyWritten = errors.New("http11: headers already written")

	// ErrInvalidStatusCode indicates a status code that is not three digits
	// (outside the 100-999 range).
	ErrInvalidStatusCode = errors.New("http11: invalid status code")
)
