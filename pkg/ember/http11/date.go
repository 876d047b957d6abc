package http11

import "time"

// rfc1123GMT formats t as the RFC 1123 / RFC 7231 §7.1.1.1 preferred HTTP
// date format, e.g. "Mon, 02 Jan 2006 15:04:05 GMT". time.Format is
// locale-independent — Go's month/day names in this layout are literal
// constants, not derived from the host locale — so this never needs a
// locale-pinned formatter the way C's strftime does.
func rfc1123GMT(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
}
