package supervisor

import (
	"unicode/utf8"
)

// capture keeps the first limit bytes written to it and counts the rest.
// Writes never fail, so the process is never blocked on a full pipe.
type capture struct {
	limit int
	buf   []byte
	total int64
}

func newCapture(limit int) *capture {
	return &capture{limit: limit, buf: make([]byte, 0, min(limit, 4096))}
}

func (c *capture) Write(p []byte) (int, error) {
	c.total += int64(len(p))
	if room := c.limit - len(c.buf); room > 0 {
		c.buf = append(c.buf, p[:min(room, len(p))]...)
	}
	return len(p), nil
}

// stream returns the captured text and whether it is valid UTF-8. A rune
// split by the limit is dropped rather than reported as invalid.
func (c *capture) stream() (Stream, bool) {
	data := c.buf
	truncated := c.total > int64(c.limit)
	if truncated {
		data = trimPartialRune(data)
	}
	if !utf8.Valid(data) {
		return Stream{Truncated: truncated, Total: c.total}, false
	}
	return Stream{Data: string(data), Truncated: truncated, Total: c.total}, true
}

func trimPartialRune(b []byte) []byte {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return b[:i]
			}
			return b
		}
	}
	return b
}
