package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xdg/warden/internal/audit"
	"github.com/xdg/warden/internal/engine"
	"github.com/xdg/warden/internal/supervisor"
	"github.com/xdg/warden/internal/validator"
)

const testSecret = "test-secret"

// shortTempDir returns a directory short enough for a Unix socket path;
// t.TempDir() can exceed the ~108 byte limit.
func shortTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "wsock")
	if err != nil {
		t.Fatalf("MkdirTemp() error = %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []engine.Request
	started  chan struct{}
	// block makes Execute wait for ctx and report cancellation.
	block bool
	// delay makes Execute take this long unless ctx ends first.
	delay   time.Duration
	entries map[audit.Hash]audit.Lookup
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{started: make(chan struct{}, 16)}
}

func (f *fakeBackend) Execute(ctx context.Context, req engine.Request) engine.Response {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	f.started <- struct{}{}

	canceled := engine.Response{
		TaskID: req.TaskID,
		Result: supervisor.Rejected(supervisor.Failed, supervisor.ReasonCanceled, "canceled"),
	}
	if f.block {
		<-ctx.Done()
		return canceled
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return canceled
		}
	}
	code := 0
	return engine.Response{
		TaskID:   req.TaskID,
		Policy:   req.Policy,
		Decision: validator.Decision{Verdict: validator.Allowed, Pattern: `^ls\b`},
		Result: supervisor.Result{
			Status:   supervisor.Completed,
			ExitCode: &code,
			Stdout:   supervisor.Stream{Data: "file.txt\n", Total: 9},
		},
	}
}

func (f *fakeBackend) Check(command, policyID string) validator.Decision {
	if strings.HasPrefix(command, "rm") {
		return validator.Decision{Verdict: validator.BlockedByPattern, Rule: "destructive", Pattern: `\brm\s+-rf\b`}
	}
	return validator.Decision{Verdict: validator.Allowed, Pattern: policyID}
}

func (f *fakeBackend) Lookup(_ context.Context, h audit.Hash) (audit.Lookup, error) {
	if l, ok := f.entries[h]; ok {
		return l, nil
	}
	return audit.Lookup{}, audit.ErrNotFound
}

func startServer(t *testing.T, b Backend, opts ...Option) *Server {
	t.Helper()
	srv := New(filepath.Join(shortTempDir(t), "w.sock"), testSecret, b, opts...)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return srv
}

func roundTrip(t *testing.T, path string, raw string) Reply {
	t.Helper()
	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Write([]byte(raw + "\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		t.Fatalf("ReadBytes() error = %v", err)
	}
	var reply Reply
	if err := json.Unmarshal(line, &reply); err != nil {
		t.Fatalf("Unmarshal(%q) error = %v", line, err)
	}
	return reply
}

func encode(t *testing.T, req Request) string {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestStartStop(t *testing.T) {
	path := filepath.Join(shortTempDir(t), "n", "w.sock")
	srv := New(path, testSecret, newFakeBackend())

	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("socket not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("socket mode = %o, want 600", perm)
	}
	dir, _ := os.Stat(filepath.Dir(path))
	if perm := dir.Mode().Perm(); perm != 0o700 {
		t.Errorf("socket dir mode = %o, want 700", perm)
	}

	if err := srv.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("socket still present after Stop: %v", err)
	}
	if err := srv.Stop(context.Background()); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestStartRequiresSecret(t *testing.T) {
	srv := New(filepath.Join(shortTempDir(t), "w.sock"), "", newFakeBackend())
	if err := srv.Start(); err == nil {
		t.Fatal("Start() with empty secret succeeded")
	}
}

func TestStartRefusesLiveSocket(t *testing.T) {
	first := startServer(t, newFakeBackend())

	second := New(first.SocketPath(), testSecret, newFakeBackend())
	err := second.Start()
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("Start() error = %v, want ErrAlreadyRunning", err)
	}

	if reply := roundTrip(t, first.SocketPath(), encode(t, Request{Secret: testSecret, Op: OpPing})); !reply.Success {
		t.Errorf("first server stopped answering: %s", reply.Error)
	}
}

func TestStartReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(shortTempDir(t), "w.sock")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	srv := New(path, testSecret, newFakeBackend())
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() over stale socket error = %v", err)
	}
	_ = srv.Stop(context.Background())
}

func TestRequests(t *testing.T) {
	b := newFakeBackend()
	known := audit.SHA256.Sum([]byte("entry"))
	b.entries = map[audit.Hash]audit.Lookup{
		known: {Hash: known, Kind: audit.KindPayload, Payload: map[string]any{"command": "ls"}},
	}
	srv := startServer(t, b)
	missing := audit.SHA256.Sum([]byte("missing"))

	tests := []struct {
		name    string
		raw     string
		wantErr string
		check   func(t *testing.T, r Reply)
	}{
		{
			name:    "invalid json",
			raw:     "{not json",
			wantErr: "invalid JSON",
		},
		{
			name:    "wrong secret",
			raw:     encode(t, Request{Secret: "nope", Op: OpPing}),
			wantErr: "invalid secret",
		},
		{
			name:    "unknown op",
			raw:     encode(t, Request{Secret: testSecret, Op: "shell"}),
			wantErr: "unknown operation",
		},
		{
			name:    "execute without body",
			raw:     encode(t, Request{Secret: testSecret, Op: OpExecute}),
			wantErr: "missing request",
		},
		{
			name: "execute",
			raw: encode(t, Request{Secret: testSecret, Op: OpExecute, Execute: &engine.Request{
				TaskID: "t1", Command: "ls", WorkDir: "/tmp", Policy: "readonly",
			}}),
			check: func(t *testing.T, r Reply) {
				if r.Execute == nil {
					t.Fatal("Execute reply missing")
				}
				if r.Execute.Status() != supervisor.Completed {
					t.Errorf("Status = %v, want completed", r.Execute.Status())
				}
				if r.Execute.Result.Stdout.Data != "file.txt\n" {
					t.Errorf("Stdout = %q, want file.txt", r.Execute.Result.Stdout.Data)
				}
				if r.Execute.Confidence == nil || *r.Execute.Confidence != 1 {
					t.Errorf("Confidence = %v, want 1", r.Execute.Confidence)
				}
			},
		},
		{
			name: "check",
			raw:  encode(t, Request{Secret: testSecret, Op: OpCheck, Check: &CheckRequest{Command: "rm -rf /", Policy: "readonly"}}),
			check: func(t *testing.T, r Reply) {
				if r.Check == nil || r.Check.Verdict != validator.BlockedByPattern {
					t.Errorf("Check = %+v, want blocked", r.Check)
				}
			},
		},
		{
			name:    "lookup malformed hash",
			raw:     encode(t, Request{Secret: testSecret, Op: OpLookup, Hash: "sha256:xyz"}),
			wantErr: "lookup",
		},
		{
			name:    "lookup unknown hash",
			raw:     encode(t, Request{Secret: testSecret, Op: OpLookup, Hash: missing}),
			wantErr: "no entry or payload",
		},
		{
			name: "lookup payload",
			raw:  encode(t, Request{Secret: testSecret, Op: OpLookup, Hash: known}),
			check: func(t *testing.T, r Reply) {
				if r.Lookup == nil || r.Lookup.Kind != audit.KindPayload {
					t.Fatalf("Lookup = %+v, want payload", r.Lookup)
				}
				if r.Lookup.Payload["command"] != "ls" {
					t.Errorf("Payload = %v, want command ls", r.Lookup.Payload)
				}
			},
		},
		{
			name: "ping",
			raw:  encode(t, Request{Secret: testSecret, Op: OpPing}),
			check: func(t *testing.T, r Reply) {
				if r.Version == "" {
					t.Error("ping reply has no version")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := roundTrip(t, srv.SocketPath(), tt.raw)
			if tt.wantErr != "" {
				if reply.Success || !strings.Contains(reply.Error, tt.wantErr) {
					t.Errorf("reply = %+v, want error containing %q", reply, tt.wantErr)
				}
				return
			}
			if !reply.Success {
				t.Fatalf("reply error = %q", reply.Error)
			}
			tt.check(t, reply)
		})
	}
}

func TestRequestTooLarge(t *testing.T) {
	srv := startServer(t, newFakeBackend())
	huge := `{"secret":"` + strings.Repeat("x", maxRequestBytes) + `"}` + "\n"

	conn, err := net.Dial("unix", srv.SocketPath())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()
	// The server may hang up before the tail of the write is sent.
	go func() { _, _ = conn.Write([]byte(huge)) }()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		t.Fatalf("ReadBytes() error = %v", err)
	}
	var reply Reply
	if err := json.Unmarshal(line, &reply); err != nil {
		t.Fatal(err)
	}
	if reply.Success || reply.Error != "request too large" {
		t.Errorf("reply = %+v, want request too large", reply)
	}
}

func TestSlowClientTimesOut(t *testing.T) {
	srv := startServer(t, newFakeBackend(), WithReadTimeout(100*time.Millisecond))

	conn, err := net.Dial("unix", srv.SocketPath())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		t.Fatalf("ReadBytes() error = %v", err)
	}
	if !strings.Contains(string(line), "failed to read request") {
		t.Errorf("reply = %s, want read failure", line)
	}
}

func TestHangupCancelsExecute(t *testing.T) {
	b := newFakeBackend()
	b.block = true
	srv := startServer(t, b)

	conn, err := net.Dial("unix", srv.SocketPath())
	if err != nil {
		t.Fatal(err)
	}
	req := encode(t, Request{Secret: testSecret, Op: OpExecute, Execute: &engine.Request{Command: "sleep 30", Policy: "readonly"}})
	if _, err := conn.Write([]byte(req + "\n")); err != nil {
		t.Fatal(err)
	}

	select {
	case <-b.started:
	case <-time.After(5 * time.Second):
		t.Fatal("execute never reached the backend")
	}
	_ = conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if ctx.Err() != nil {
		t.Error("Stop() had to force cancellation; hangup did not cancel the request")
	}
}

func TestStopCancelsInFlight(t *testing.T) {
	b := newFakeBackend()
	b.block = true
	srv := startServer(t, b)

	conn, err := net.Dial("unix", srv.SocketPath())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()
	req := encode(t, Request{Secret: testSecret, Op: OpExecute, Execute: &engine.Request{Command: "sleep 30", Policy: "readonly"}})
	if _, err := conn.Write([]byte(req + "\n")); err != nil {
		t.Fatal(err)
	}
	<-b.started

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		t.Fatalf("no reply after forced stop: %v", err)
	}
	var reply Reply
	if err := json.Unmarshal(line, &reply); err != nil {
		t.Fatal(err)
	}
	if reply.Execute == nil || reply.Execute.Result.Reason != supervisor.ReasonCanceled {
		t.Errorf("reply = %s, want canceled result", line)
	}
}
