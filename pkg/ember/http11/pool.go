package http11

import "sync"

// messagePool and responsePool recycle IncomingMessage/Response structs
// across keep-alive requests on the same connection and across distinct
// connections once freed, avoiding one allocation per request for the two
// largest per-request objects.
var messagePool = sync.Pool{
	New: func() any { return &IncomingMessage{} },
}

var responsePool = sync.Pool{
	New: func() any { return &Response{} },
}

// AcquireMessage returns a zeroed IncomingMessage from the pool.
func AcquireMessage() *IncomingMessage {
	return messagePool.Get().(*IncomingMessage)
}

// ReleaseMessage resets msg and returns it to the pool. Callers must not
// retain msg after calling ReleaseMessage.
func ReleaseMessage(msg *IncomingMessage) {
	msg.reset()
	messagePool.Put(msg)
}

// AcquireResponse returns a Response from the pool, initialized to write
// over sender.
func AcquireResponse(sender Sender) *Response {
	r := responsePool.Get().(*Response)
	r.Reset(sender)
	return r
}

// ReleaseResponse returns r to the pool. Callers must not retain r after
// calling ReleaseResponse.
func ReleaseResponse(r *Response) {
	responsePool.Put(r)
}
