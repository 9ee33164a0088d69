// Package client talks to a warden daemon over its Unix socket.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/xdg/warden/internal/audit"
	"github.com/xdg/warden/internal/clog"
	"github.com/xdg/warden/internal/engine"
	"github.com/xdg/warden/internal/server"
	"github.com/xdg/warden/internal/validator"
)

var (
	// ErrNotRunning is returned by FromState when no daemon is running.
	ErrNotRunning = errors.New("warden daemon is not running")
	// ErrRemote wraps errors reported by the daemon itself.
	ErrRemote = errors.New("daemon error")
)

// Client sends one request per connection.
type Client struct {
	socketPath string
	secret     string
}

// New returns a Client for the daemon at socketPath.
func New(socketPath, secret string) *Client {
	return &Client{socketPath: socketPath, secret: secret}
}

// FromState returns a Client for the daemon described by the state file
// at path.
func FromState(path string) (*Client, error) {
	st, err := server.LoadState(path)
	if err != nil {
		return nil, err
	}
	if st == nil || !st.Running() {
		return nil, ErrNotRunning
	}
	return New(st.Socket, st.Secret), nil
}

// Execute runs req on the daemon. Canceling ctx closes the connection,
// which makes the daemon kill the command.
func (c *Client) Execute(ctx context.Context, req engine.Request) (*engine.Response, error) {
	reply, err := c.call(ctx, server.Request{Op: server.OpExecute, Execute: &req})
	if err != nil {
		return nil, err
	}
	if reply.Execute == nil {
		return nil, fmt.Errorf("%w: empty execute reply", ErrRemote)
	}
	return reply.Execute, nil
}

// Check asks the daemon for a validation decision.
func (c *Client) Check(ctx context.Context, command, policyID string) (validator.Decision, error) {
	reply, err := c.call(ctx, server.Request{
		Op:    server.OpCheck,
		Check: &server.CheckRequest{Command: command, Policy: policyID},
	})
	if err != nil {
		return validator.Decision{}, err
	}
	if reply.Check == nil {
		return validator.Decision{}, fmt.Errorf("%w: empty check reply", ErrRemote)
	}
	return *reply.Check, nil
}

// Lookup resolves an audit hash on the daemon.
func (c *Client) Lookup(ctx context.Context, h audit.Hash) (*server.LookupReply, error) {
	reply, err := c.call(ctx, server.Request{Op: server.OpLookup, Hash: h})
	if err != nil {
		return nil, err
	}
	if reply.Lookup == nil {
		return nil, fmt.Errorf("%w: empty lookup reply", ErrRemote)
	}
	return reply.Lookup, nil
}

// Ping returns the daemon's version.
func (c *Client) Ping(ctx context.Context) (string, error) {
	reply, err := c.call(ctx, server.Request{Op: server.OpPing})
	if err != nil {
		return "", err
	}
	return reply.Version, nil
}

func (c *Client) call(ctx context.Context, req server.Request) (*server.Reply, error) {
	req.Secret = c.secret

	conn, err := (&net.Dialer{}).DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon (%s): %w", c.socketPath, err)
	}
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			clog.Warn("client: close connection: %v", err)
		}
	}()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, c.ioError(ctx, "send request", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, c.ioError(ctx, "read reply", err)
	}
	var reply server.Reply
	if err := json.Unmarshal(line, &reply); err != nil {
		return nil, fmt.Errorf("parse reply: %w", err)
	}
	if !reply.Success {
		return nil, fmt.Errorf("%w: %s", ErrRemote, reply.Error)
	}
	return &reply, nil
}

// ioError prefers the context's error when the connection was closed
// because ctx ended.
func (c *Client) ioError(ctx context.Context, op string, err error) error {
	if cause := context.Cause(ctx); cause != nil {
		return fmt.Errorf("%s: %w", op, cause)
	}
	return fmt.Errorf("%s: %w", op, err)
}
