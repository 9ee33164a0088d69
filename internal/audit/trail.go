package audit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Format returns the entry as one trail line:
//
//	2024-01-15T14:32:05Z WARDEN COMPLETED task=t1 policy=readonly cmd="ls -la" exit=0 duration=12.0ms hash=sha256:...
func (rec *Record) Format() string {
	e := &rec.Entry
	var b strings.Builder

	b.WriteString(e.Time.UTC().Format(time.RFC3339))
	b.WriteString(" WARDEN ")
	b.WriteString(strings.ToUpper(e.Status))

	b.WriteString(" task=")
	b.WriteString(e.TaskID)
	b.WriteString(" policy=")
	b.WriteString(e.Policy)
	b.WriteString(" cmd=")
	b.WriteString(quoteValue(e.Command))

	switch e.Decision.Verdict {
	case "allowed":
		if e.ExitCode != nil {
			b.WriteString(" exit=")
			b.WriteString(strconv.Itoa(*e.ExitCode))
		}
		b.WriteString(" duration=")
		b.WriteString(formatDuration(e.Elapsed))
		writeOptionalField(&b, "reason", e.Reason)
	default:
		b.WriteString(" verdict=")
		b.WriteString(e.Decision.Verdict)
		writeOptionalField(&b, "rule", e.Decision.Rule)
		writeOptionalField(&b, "pattern", e.Decision.Pattern)
		writeOptionalField(&b, "reason", e.Decision.Reason)
	}

	b.WriteString(" hash=")
	b.WriteString(string(rec.Hash))
	return b.String()
}

func writeOptionalField(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	b.WriteString(" ")
	b.WriteString(key)
	b.WriteString("=")
	b.WriteString(quoteValue(value))
}

func quoteValue(s string) string {
	return strconv.Quote(s)
}

// formatDuration formats d as "12.0ms", "2.3s" or "1m30s".
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

// Trail writes a human-readable line per entry. It is a convenience for
// operators; the Store is authoritative.
type Trail struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

// NewTrail returns a Trail writing to w.
func NewTrail(w io.Writer) *Trail {
	return &Trail{w: w}
}

// OpenTrail appends to the file at path, creating it 0600.
func OpenTrail(path string) (*Trail, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create trail directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open trail: %w", err)
	}
	return &Trail{w: f, c: f}, nil
}

// Write appends rec's line.
func (t *Trail) Write(rec Record) error {
	if t == nil || t.w == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := io.WriteString(t.w, rec.Format()+"\n"); err != nil {
		return fmt.Errorf("write audit trail: %w", err)
	}
	return nil
}

func (t *Trail) Close() error {
	if t == nil || t.c == nil {
		return nil
	}
	return t.c.Close()
}
