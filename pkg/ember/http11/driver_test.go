package http11

import (
	"strings"
	"testing"
)

func TestDriverParsesSimpleGET(t *testing.T) {
	d := NewDriver()

	var got *IncomingMessage
	d.OnRequest = func(msg *IncomingMessage) { got = msg }

	raw := "GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n"
	n, err := d.Feed([]byte(raw))
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if n != len(raw) {
		t.Fatalf("consumed %d, want %d", n, len(raw))
	}
	if got == nil {
		t.Fatal("OnRequest never fired")
	}
	if got.Method != MethodGET || got.URL != "/index.html" {
		t.Fatalf("method=%d url=%q", got.Method, got.URL)
	}
	if !got.KeepAlive {
		t.Fatal("HTTP/1.1 request should default to keep-alive")
	}
	if host := got.Header.GetString([]byte("host")); host != "example.com" {
		t.Fatalf("Host header = %q", host)
	}
}

func TestDriverHandlesSplitAcrossFeedCalls(t *testing.T) {
	d := NewDriver()
	var got *IncomingMessage
	d.OnRequest = func(msg *IncomingMessage) { got = msg }

	full := "GET / HTTP/1.1\r\nHost: x\r\n\r\n"
	for i := 0; i < len(full); i++ {
		if _, err := d.Feed([]byte{full[i]}); err != nil {
			t.Fatalf("Feed byte %d: %v", i, err)
		}
	}
	if got == nil || got.URL != "/" {
		t.Fatalf("got=%v", got)
	}
}

func TestDriverDeliversFixedLengthBody(t *testing.T) {
	d := NewDriver()
	var body strings.Builder
	ended := false
	d.OnRequest = func(msg *IncomingMessage) {
		msg.OnBody(func(chunk []byte) { body.Write(chunk) })
		msg.OnEnd(func() { ended = true })
	}

	raw := "POST /submit HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"
	if _, err := d.Feed([]byte(raw)); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if body.String() != "hello" {
		t.Fatalf("body = %q", body.String())
	}
	if !ended {
		t.Fatal("OnEnd never fired")
	}
}

func TestDriverDeliversChunkedBody(t *testing.T) {
	d := NewDriver()
	var body strings.Builder
	ended := false
	d.OnRequest = func(msg *IncomingMessage) {
		msg.OnBody(func(chunk []byte) { body.Write(chunk) })
		msg.OnEnd(func() { ended = true })
	}

	raw := "POST /submit HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n"
	if _, err := d.Feed([]byte(raw)); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if body.String() != "Wikipedia" {
		t.Fatalf("body = %q", body.String())
	}
	if !ended {
		t.Fatal("OnEnd never fired for chunked body")
	}
}

func TestDriverRejectsContentLengthWithTransferEncoding(t *testing.T) {
	d := NewDriver()
	var gotErr error
	d.OnError = func(err error) { gotErr = err }

	raw := "POST / HTTP/1.1\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\nhello"
	_, err := d.Feed([]byte(raw))
	if err != ErrContentLengthWithTransferEncoding {
		t.Fatalf("Feed err = %v, want ErrContentLengthWithTransferEncoding", err)
	}
	if gotErr != err {
		t.Fatalf("OnError callback got %v", gotErr)
	}
}

func TestDriverRejectsDuplicateContentLength(t *testing.T) {
	d := NewDriver()
	raw := "POST / HTTP/1.1\r\nContent-Length: 5\r\nContent-Length: 6\r\n\r\nhello!"
	_, err := d.Feed([]byte(raw))
	if err != ErrDuplicateContentLength {
		t.Fatalf("Feed err = %v, want ErrDuplicateContentLength", err)
	}
}

func TestDriverDetectsUpgradeAndStopsConsuming(t *testing.T) {
	d := NewDriver()
	var got *IncomingMessage
	d.OnRequest = func(msg *IncomingMessage) { got = msg }

	raw := "GET /chat HTTP/1.1\r\nConnection: Upgrade\r\nUpgrade: websocket\r\n\r\nLEFTOVER"
	n, err := d.Feed([]byte(raw))
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if got == nil || !got.Upgrade {
		t.Fatal("expected upgrade request")
	}
	consumedHeader := len(raw) - len("LEFTOVER")
	if n != consumedHeader {
		t.Fatalf("consumed %d, want %d (leftover bytes untouched)", n, consumedHeader)
	}
}

func TestDriverFiresOnUpgradeWithLeftoverBytes(t *testing.T) {
	d := NewDriver()
	var leftover []byte
	fired := false
	d.OnRequest = func(msg *IncomingMessage) {
		msg.OnUpgrade(func(lo []byte) {
			fired = true
			leftover = lo
		})
	}

	raw := "GET /chat HTTP/1.1\r\nConnection: Upgrade\r\nUpgrade: websocket\r\n\r\nLEFTOVER"
	if _, err := d.Feed([]byte(raw)); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if !fired {
		t.Fatal("expected OnUpgrade handler to fire")
	}
	if string(leftover) != "LEFTOVER" {
		t.Fatalf("leftover = %q, want %q", leftover, "LEFTOVER")
	}
}

func TestDriverResetAllowsNextKeepAliveRequest(t *testing.T) {
	d := NewDriver()
	var seen []string
	d.OnRequest = func(msg *IncomingMessage) { seen = append(seen, msg.URL) }

	first := "GET /one HTTP/1.1\r\nHost: x\r\n\r\n"
	if _, err := d.Feed([]byte(first)); err != nil {
		t.Fatalf("Feed first: %v", err)
	}

	second := "GET /two HTTP/1.1\r\nHost: x\r\n\r\n"
	if _, err := d.Feed([]byte(second)); err != nil {
		t.Fatalf("Feed second: %v", err)
	}

	if len(seen) != 2 || seen[0] != "/one" || seen[1] != "/two" {
		t.Fatalf("seen = %v", seen)
	}
}

func TestDriverConnectionCloseOverridesKeepAlive(t *testing.T) {
	d := NewDriver()
	var got *IncomingMessage
	d.OnRequest = func(msg *IncomingMessage) { got = msg }

	raw := "GET / HTTP/1.1\r\nConnection: close\r\n\r\n"
	if _, err := d.Feed([]byte(raw)); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if got.KeepAlive {
		t.Fatal("Connection: close should disable keep-alive")
	}
}
