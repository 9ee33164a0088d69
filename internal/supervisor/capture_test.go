package supervisor

import (
	"strings"
	"testing"
)

func TestCaptureBoundary(t *testing.T) {
	const limit = 16

	tests := []struct {
		name          string
		writes        []string
		wantData      string
		wantTruncated bool
		wantTotal     int64
	}{
		{"below", []string{"hello"}, "hello", false, 5},
		{"exactly at limit", []string{strings.Repeat("a", limit)}, strings.Repeat("a", limit), false, limit},
		{"one over", []string{strings.Repeat("a", limit+1)}, strings.Repeat("a", limit), true, limit + 1},
		{"across writes", []string{"0123456789", "abcdefghij", "KLMN"}, "0123456789abcdef", true, 24},
		{"empty", nil, "", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCapture(limit)
			for _, w := range tt.writes {
				n, err := c.Write([]byte(w))
				if err != nil || n != len(w) {
					t.Fatalf("Write() = %d, %v; want %d, nil", n, err, len(w))
				}
			}

			s, ok := c.stream()
			if !ok {
				t.Fatal("stream() reported invalid UTF-8")
			}
			if s.Data != tt.wantData {
				t.Errorf("Data = %q, want %q", s.Data, tt.wantData)
			}
			if s.Truncated != tt.wantTruncated {
				t.Errorf("Truncated = %v, want %v", s.Truncated, tt.wantTruncated)
			}
			if s.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", s.Total, tt.wantTotal)
			}
		})
	}
}

func TestCaptureSplitRune(t *testing.T) {
	c := newCapture(11)
	_, _ = c.Write([]byte(strings.Repeat("é", 7)))

	s, ok := c.stream()
	if !ok {
		t.Fatal("a rune split by the limit must not count as invalid UTF-8")
	}
	if s.Data != strings.Repeat("é", 5) {
		t.Errorf("Data = %q, want five runes", s.Data)
	}
	if !s.Truncated {
		t.Error("Truncated = false, want true")
	}
}

func TestCaptureInvalidUTF8(t *testing.T) {
	c := newCapture(64)
	_, _ = c.Write([]byte{'o', 'k', 0xff, 0xfe})

	s, ok := c.stream()
	if ok {
		t.Fatal("stream() accepted invalid UTF-8")
	}
	if s.Data != "" {
		t.Errorf("Data = %q, want it dropped", s.Data)
	}
}

func TestStreamText(t *testing.T) {
	if got := (Stream{Data: "x"}).Text(); got != "x" {
		t.Errorf("Text() = %q, want %q", got, "x")
	}
	if got := (Stream{Data: "x", Truncated: true}).Text(); got != "x"+TruncationNotice {
		t.Errorf("Text() = %q, want notice appended", got)
	}
}
