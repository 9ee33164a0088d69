// Package server exposes an engine over a Unix socket so that other
// processes on the host can submit commands to a long-running warden.
//
// The protocol is one newline-terminated JSON Request per connection,
// answered by one newline-terminated JSON Reply. Every request carries the
// daemon's shared secret. The socket is created 0600 in a 0700 directory.
// Closing the connection while a command runs cancels it. On Linux a
// client may shut down its write side after the request line and still
// receive the reply; elsewhere that half-close also counts as a hangup.
package server

import (
	"bufio"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xdg/warden/internal/audit"
	"github.com/xdg/warden/internal/clog"
	"github.com/xdg/warden/internal/engine"
	"github.com/xdg/warden/internal/validator"
	"github.com/xdg/warden/internal/version"
)

// ErrAlreadyRunning is returned by Start when another daemon answers on
// the socket path.
var ErrAlreadyRunning = errors.New("a warden daemon is already listening")

const defaultReadTimeout = 10 * time.Second

// Backend is the engine surface served over the socket.
type Backend interface {
	Execute(ctx context.Context, req engine.Request) engine.Response
	Check(command, policyID string) validator.Decision
	Lookup(ctx context.Context, h audit.Hash) (audit.Lookup, error)
}

// Server accepts connections on a Unix socket and dispatches them to a
// Backend.
type Server struct {
	socketPath  string
	secret      string
	backend     Backend
	readTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex // protects listener and closing
	listener net.Listener
	closing  bool
	wg       sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithReadTimeout bounds how long a client may take to send its request.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = d
	}
}

// New returns a Server that will listen on socketPath once started.
func New(socketPath, secret string, b Backend, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		socketPath:  socketPath,
		secret:      secret,
		backend:     b,
		readTimeout: defaultReadTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SocketPath returns the path of the Unix socket.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start listens on the socket and serves connections in the background.
// A stale socket file left by a crashed daemon is replaced; a live one is
// not.
func (s *Server) Start() error {
	if s.secret == "" {
		return errors.New("server: empty shared secret")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("server: already started")
	}

	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	if _, err := os.Stat(s.socketPath); err == nil {
		if conn, err := net.DialTimeout("unix", s.socketPath, 200*time.Millisecond); err == nil {
			_ = conn.Close()
			return fmt.Errorf("%w on %s", ErrAlreadyRunning, s.socketPath)
		}
		if err := os.Remove(s.socketPath); err != nil {
			return fmt.Errorf("remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop(ln)
	clog.Info("server: listening on %s", s.socketPath)
	return nil
}

// Stop stops accepting connections and waits for in-flight requests. If
// ctx is done first, running commands are canceled and Stop waits for
// their (audited) outcome before returning.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.listener == nil || s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	err := s.listener.Close()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		clog.Warn("server: canceling in-flight requests: %v", context.Cause(ctx))
		s.cancel()
		<-done
	}
	s.cancel()

	if rmErr := os.Remove(s.socketPath); rmErr != nil && !os.IsNotExist(rmErr) {
		clog.Warn("server: remove socket: %v", rmErr)
	}
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return
			}
			clog.Warn("server: accept: %v", err)
			continue
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	reader := bufio.NewReader(io.LimitReader(conn, maxRequestBytes+1))
	line, err := reader.ReadBytes('\n')
	if err != nil {
		if len(line) > maxRequestBytes {
			writeError(conn, "request too large")
			return
		}
		writeError(conn, "failed to read request: "+err.Error())
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		writeError(conn, "invalid JSON: "+err.Error())
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.secret)) != 1 {
		clog.Warn("server: rejected %s request with invalid secret", req.Op)
		writeError(conn, "invalid secret")
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	go watchHangup(ctx, conn, cancel)

	writeReply(conn, s.dispatch(ctx, req))
}

// watchHangup cancels once the client closes the connection. Clients send
// nothing after the request line, so any read result other than EOF means
// the request is over. EOF may only be a shutdown of the client's write
// side, so the command keeps running until awaitClose sees a full close.
func watchHangup(ctx context.Context, conn net.Conn, cancel context.CancelFunc) {
	defer cancel()
	var b [1]byte
	if _, err := conn.Read(b[:]); errors.Is(err, io.EOF) {
		awaitClose(ctx, conn)
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Reply {
	switch req.Op {
	case OpExecute:
		if req.Execute == nil {
			return failure("execute: missing request")
		}
		resp := s.backend.Execute(ctx, *req.Execute)
		c := engine.Confidence(&resp)
		resp.Confidence = &c
		return Reply{Success: true, Execute: &resp}

	case OpCheck:
		if req.Check == nil {
			return failure("check: missing request")
		}
		d := s.backend.Check(req.Check.Command, req.Check.Policy)
		return Reply{Success: true, Check: &d}

	case OpLookup:
		h, err := audit.ParseHash(string(req.Hash))
		if err != nil {
			return failure("lookup: " + err.Error())
		}
		l, err := s.backend.Lookup(ctx, h)
		if errors.Is(err, audit.ErrNotFound) {
			return failure("lookup: no entry or payload with hash " + h.String())
		}
		if err != nil {
			clog.Error("server: lookup %s: %v", h, err)
			return failure("lookup: " + err.Error())
		}
		return Reply{Success: true, Lookup: NewLookupReply(l)}

	case OpPing:
		return Reply{Success: true, Version: version.Version}

	default:
		return failure(fmt.Sprintf("unknown operation %q", req.Op))
	}
}

func failure(msg string) Reply {
	return Reply{Success: false, Error: msg}
}

func writeError(conn net.Conn, msg string) {
	writeReply(conn, failure(msg))
}

func writeReply(conn net.Conn, reply Reply) {
	data, err := json.Marshal(reply)
	if err != nil {
		clog.Error("server: marshal reply: %v", err)
		_, _ = conn.Write([]byte(`{"success":false,"error":"failed to marshal response"}` + "\n"))
		return
	}
	data = append(data, '\n')
	_, _ = conn.Write(data)
}
