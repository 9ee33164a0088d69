package audit

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var testTime = time.Date(2024, 1, 15, 14, 32, 5, 0, time.UTC)

func TestRecordFormat(t *testing.T) {
	zero, seven := 0, 7
	const hash = Hash("sha256:00")

	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{
			name: "completed",
			entry: Entry{
				Time: testTime, TaskID: "t1", Policy: "readonly", Command: "ls -la /tmp",
				Decision: Decision{Verdict: "allowed"}, Status: "completed", ExitCode: &zero,
				Elapsed: 12 * time.Millisecond,
			},
			want: `2024-01-15T14:32:05Z WARDEN COMPLETED task=t1 policy=readonly cmd="ls -la /tmp" exit=0 duration=12.0ms hash=sha256:00`,
		},
		{
			name: "non-zero exit",
			entry: Entry{
				Time: testTime, TaskID: "t2", Policy: "build", Command: "make",
				Decision: Decision{Verdict: "allowed"}, Status: "completed", ExitCode: &seven,
				Elapsed: 2300 * time.Millisecond,
			},
			want: `2024-01-15T14:32:05Z WARDEN COMPLETED task=t2 policy=build cmd="make" exit=7 duration=2.3s hash=sha256:00`,
		},
		{
			name: "timed out",
			entry: Entry{
				Time: testTime, TaskID: "t3", Policy: "readonly", Command: "sleep 100",
				Decision: Decision{Verdict: "allowed"}, Status: "timed_out", Reason: "TimeoutExceeded",
				Elapsed: 90 * time.Second,
			},
			want: `2024-01-15T14:32:05Z WARDEN TIMED_OUT task=t3 policy=readonly cmd="sleep 100" duration=1m30s reason="TimeoutExceeded" hash=sha256:00`,
		},
		{
			name: "blocked",
			entry: Entry{
				Time: testTime, TaskID: "t4", Policy: "readonly", Command: "rm -rf /tmp/x",
				Decision: Decision{Verdict: "blocked_by_pattern", Rule: "recursive_delete", Pattern: `rm\s+-rf`, Reason: "matches"},
				Status: "blocked",
			},
			want: `2024-01-15T14:32:05Z WARDEN BLOCKED task=t4 policy=readonly cmd="rm -rf /tmp/x" verdict=blocked_by_pattern rule="recursive_delete" pattern="rm\\s+-rf" reason="matches" hash=sha256:00`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Record{Hash: hash, Entry: tt.entry}
			if got := rec.Format(); got != tt.want {
				t.Errorf("Format() =\n  got:  %q\n  want: %q", got, tt.want)
			}
		})
	}
}

func TestTrailWrite(t *testing.T) {
	var buf bytes.Buffer
	trail := NewTrail(&buf)

	rec := Record{Hash: "sha256:01", Entry: Entry{Time: testTime, TaskID: "a", Status: "blocked", Decision: Decision{Verdict: "denied_by_policy"}}}
	if err := trail.Write(rec); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := trail.Write(rec); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Errorf("wrote %d lines, want 2", len(lines))
	}

	var nilTrail *Trail
	if err := nilTrail.Write(rec); err != nil {
		t.Errorf("nil Trail.Write() error = %v", err)
	}
}

func TestRecorderMirrorsToTrail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "trail.log")
	trail, err := OpenTrail(path)
	if err != nil {
		t.Fatalf("OpenTrail() error = %v", err)
	}

	r := NewRecorder(NewMemoryStore(), Options{Trail: trail})
	h, _ := recordOne(t, r, "mirror")
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "task=mirror") || !strings.Contains(string(content), string(h)) {
		t.Errorf("trail = %q, want the recorded entry", content)
	}

	info, _ := os.Stat(path)
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("trail mode = %o, want 600", perm)
	}
}
