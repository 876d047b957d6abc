package http11

import (
	"strings"
	"testing"
	"time"
)

type recordingSender struct {
	written strings.Builder
	ended   bool
}

func (s *recordingSender) Write(data []byte) error {
	s.written.Write(data)
	return nil
}

func (s *recordingSender) End(data []byte) error {
	s.written.Write(data)
	s.ended = true
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestResponseWritesStatusLineAndFixedHeaderOrder(t *testing.T) {
	sender := &recordingSender{}
	r := NewResponse(sender, fixedClock(time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)))
	r.SetKeepAlive(false)
	r.SetContentLength(5)
	_ = r.Header.Add([]byte("X-Custom"), []byte("yes"))

	if err := r.End([]byte("hello")); err != nil {
		t.Fatalf("End: %v", err)
	}

	out := sender.written.String()
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("status line missing: %q", out)
	}
	wantOrder := []string{"Date:", "Server:", "Connection:", "Content-Length:", "X-Custom:"}
	lastIdx := -1
	for _, want := range wantOrder {
		idx := strings.Index(out, want)
		if idx < 0 {
			t.Fatalf("missing header %q in %q", want, out)
		}
		if idx < lastIdx {
			t.Fatalf("header %q out of order in %q", want, out)
		}
		lastIdx = idx
	}
	if !strings.HasSuffix(out, "hello") {
		t.Fatalf("body not appended: %q", out)
	}
	if !sender.ended {
		t.Fatal("End should mark sender ended")
	}
}

func TestResponseKeepAliveOmitsConnectionHeader(t *testing.T) {
	sender := &recordingSender{}
	r := NewResponse(sender, fixedClock(time.Now()))
	_ = r.End(nil)

	if strings.Contains(sender.written.String(), "Connection:") {
		t.Fatalf("keep-alive response should omit Connection header: %q", sender.written.String())
	}
}

func TestResponseConnectionCloseWhenKeepAliveFalse(t *testing.T) {
	sender := &recordingSender{}
	r := NewResponse(sender, fixedClock(time.Now()))
	r.SetKeepAlive(false)
	_ = r.End(nil)

	if !strings.Contains(sender.written.String(), "Connection: close") {
		t.Fatalf("missing close header: %q", sender.written.String())
	}
}

func TestResponseUnknownStatusCodeStillWellFormed(t *testing.T) {
	sender := &recordingSender{}
	r := NewResponse(sender, fixedClock(time.Now()))
	if err := r.WriteStatus(799); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}
	_ = r.End(nil)

	if !strings.HasPrefix(sender.written.String(), "HTTP/1.1 799 ") {
		t.Fatalf("status line: %q", sender.written.String())
	}
}

func TestResponseStatusAfterSendIsRejected(t *testing.T) {
	sender := &recordingSender{}
	r := NewResponse(sender, fixedClock(time.Now()))
	_ = r.Write([]byte("x"))
	if err := r.WriteStatus(404); err != ErrHeadersAlreadyWritten {
		t.Fatalf("WriteStatus after send: got %v", err)
	}
}

func TestResponseEndDerivesContentLengthFromBody(t *testing.T) {
	sender := &recordingSender{}
	r := NewResponse(sender, fixedClock(time.Now()))
	if err := r.End([]byte("hi")); err != nil {
		t.Fatalf("End: %v", err)
	}

	out := sender.written.String()
	if !strings.Contains(out, "Content-Length: 2\r\n") {
		t.Fatalf("expected derived Content-Length: 2, got %q", out)
	}
}

func TestResponseEndHonorsExplicitContentLength(t *testing.T) {
	sender := &recordingSender{}
	r := NewResponse(sender, fixedClock(time.Now()))
	r.SetContentLength(100)
	if err := r.End([]byte("hi")); err != nil {
		t.Fatalf("End: %v", err)
	}

	out := sender.written.String()
	if !strings.Contains(out, "Content-Length: 100\r\n") {
		t.Fatalf("explicit Content-Length should win over body size: %q", out)
	}
}

func TestResponseSetStatusMessageOverridesDefault(t *testing.T) {
	sender := &recordingSender{}
	r := NewResponse(sender, fixedClock(time.Now()))
	if err := r.WriteStatus(404); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}
	if err := r.SetStatusMessage("Nope, Not Here"); err != nil {
		t.Fatalf("SetStatusMessage: %v", err)
	}
	if got := r.StatusMessage(); got != "Nope, Not Here" {
		t.Fatalf("StatusMessage: got %q", got)
	}
	_ = r.End(nil)

	if !strings.HasPrefix(sender.written.String(), "HTTP/1.1 404 Nope, Not Here\r\n") {
		t.Fatalf("status line: %q", sender.written.String())
	}
}

func TestResponseSetStatusMessageAfterSendIsRejected(t *testing.T) {
	sender := &recordingSender{}
	r := NewResponse(sender, fixedClock(time.Now()))
	_ = r.Write([]byte("x"))
	if err := r.SetStatusMessage("late"); err != ErrHeadersAlreadyWritten {
		t.Fatalf("SetStatusMessage after send: got %v", err)
	}
}

func TestResponseSetSendDateFalseOmitsDateHeader(t *testing.T) {
	sender := &recordingSender{}
	r := NewResponse(sender, fixedClock(time.Now()))
	r.SetSendDate(false)
	_ = r.End(nil)

	if strings.Contains(sender.written.String(), "Date:") {
		t.Fatalf("Date header should be suppressed: %q", sender.written.String())
	}
}

func TestResponseResetRestoresStatusMessageAndSendDateDefaults(t *testing.T) {
	sender := &recordingSender{}
	r := NewResponse(sender, fixedClock(time.Now()))
	_ = r.SetStatusMessage("custom")
	r.SetSendDate(false)
	_ = r.End(nil)

	r.Reset(sender)
	if r.StatusMessage() != "" {
		t.Fatalf("Reset should clear statusMessage, got %q", r.StatusMessage())
	}
	if !r.sendDate {
		t.Fatal("Reset should restore sendDate to true")
	}
}
