package http11

// Incoming message event signatures. A Request is delivered once its
// headers are complete; data/end fire as the body streams in.
type (
	BodyHandler    func(chunk []byte)
	MessageHandler func()
	ErrorHandler   func(err error)
	UpgradeHandler func(leftover []byte)
)

// IncomingMessage is the request-side half of one HTTP/1.x message: method,
// URL, protocol version and headers are populated once on_headers_complete
// fires; Body/End deliver the message body as it streams in.
type IncomingMessage struct {
	Method     uint8
	MethodName string
	URL        string
	Header     Header

	VersionMajor int
	VersionMinor int

	KeepAlive  bool
	Upgrade    bool
	BodyLength int64 // -1 when chunked or unknown until EOF

	bodyHandlers   []BodyHandler
	endHandlers    []MessageHandler
	errHandlers    []ErrorHandler
	upgradeHandler UpgradeHandler
}

// OnBody registers a handler invoked with each body chunk as it arrives.
func (m *IncomingMessage) OnBody(cb BodyHandler) {
	m.bodyHandlers = append(m.bodyHandlers, cb)
}

// OnEnd registers a handler invoked once the message body is complete.
func (m *IncomingMessage) OnEnd(cb MessageHandler) {
	m.endHandlers = append(m.endHandlers, cb)
}

// OnError registers a handler invoked if parsing fails.
func (m *IncomingMessage) OnError(cb ErrorHandler) {
	m.errHandlers = append(m.errHandlers, cb)
}

// OnUpgrade registers the handler invoked when this message's Connection
// header requests a protocol upgrade. leftover holds any bytes that arrived
// after the upgrade handshake and belong to the new protocol, not HTTP.
func (m *IncomingMessage) OnUpgrade(cb UpgradeHandler) {
	m.upgradeHandler = cb
}

func (m *IncomingMessage) fireBody(chunk []byte) {
	for _, h := range m.bodyHandlers {
		h(chunk)
	}
}

func (m *IncomingMessage) fireEnd() {
	for _, h := range m.endHandlers {
		h()
	}
}

func (m *IncomingMessage) fireError(err error) {
	for _, h := range m.errHandlers {
		h(err)
	}
}

// fireUpgrade invokes the registered upgrade handler, if any, with the
// bytes the driver had not yet consumed when it detected the upgrade.
func (m *IncomingMessage) fireUpgrade(leftover []byte) {
	if m.upgradeHandler != nil {
		m.upgradeHandler(leftover)
	}
}

// reset clears an IncomingMessage for reuse on the next keep-alive request.
func (m *IncomingMessage) reset() {
	m.Method = MethodUnknown
	m.MethodName = ""
	m.URL = ""
	m.Header.Reset()
	m.VersionMajor = 0
	m.VersionMinor = 0
	m.KeepAlive = false
	m.Upgrade = false
	m.BodyLength = 0
	m.bodyHandlers = m.bodyHandlers[:0]
	m.endHandlers = m.endHandlers[:0]
	m.errHandlers = m.errHandlers[:0]
	m.upgradeHandler = nil
}
