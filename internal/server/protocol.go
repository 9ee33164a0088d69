package server

import (
	"github.com/xdg/warden/internal/audit"
	"github.com/xdg/warden/internal/engine"
	"github.com/xdg/warden/internal/validator"
)

// Operations understood by the daemon.
const (
	OpExecute = "execute"
	OpCheck   = "check"
	OpLookup  = "lookup"
	OpPing    = "ping"
)

// maxRequestBytes bounds one request line.
const maxRequestBytes = 1 << 20

// Request is one newline-terminated JSON message sent to the daemon. Only
// the field matching Op is read.
type Request struct {
	Secret  string          `json:"secret"`
	Op      string          `json:"op"`
	Execute *engine.Request `json:"execute,omitempty"`
	Check   *CheckRequest   `json:"check,omitempty"`
	Hash    audit.Hash      `json:"hash,omitempty"`
}

// CheckRequest asks for a validation decision without running anything.
type CheckRequest struct {
	Command string `json:"command"`
	Policy  string `json:"policy"`
}

// Reply is the daemon's answer. Success is false only for transport-level
// problems (bad secret, malformed request, unknown hash); a blocked or
// failed command is a successful reply carrying that outcome.
type Reply struct {
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	Execute *engine.Response    `json:"execute,omitempty"`
	Check   *validator.Decision `json:"check,omitempty"`
	Lookup  *LookupReply        `json:"lookup,omitempty"`
	Version string              `json:"version,omitempty"`
}

// LookupReply is what an audit hash resolved to: an entry or a stored
// request/result payload.
type LookupReply struct {
	Hash    audit.Hash     `json:"hash"`
	Kind    string         `json:"kind"`
	Entry   *audit.Entry   `json:"entry,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// NewLookupReply converts a recorder lookup for the wire.
func NewLookupReply(l audit.Lookup) *LookupReply {
	r := &LookupReply{Hash: l.Hash, Kind: l.Kind, Payload: l.Payload}
	if l.Entry != nil {
		e := l.Entry.Entry
		r.Entry = &e
	}
	return r
}
