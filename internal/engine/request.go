package engine

import (
	"time"

	"github.com/xdg/warden/internal/audit"
	"github.com/xdg/warden/internal/supervisor"
	"github.com/xdg/warden/internal/validator"
)

// Request is one command submitted for execution.
type Request struct {
	// TaskID correlates the request with the caller's work. An empty ID is
	// replaced with a generated one.
	TaskID  string `json:"task_id"`
	Command string `json:"command"`
	// WorkDir must be an absolute path to an existing directory.
	WorkDir string `json:"workdir"`
	Policy  string `json:"policy"`
	// Timeout overrides the default timeout. It is capped at the maximum.
	Timeout time.Duration `json:"timeout_ns,omitempty"`
}

// Ref kinds.
const (
	RefRequest = "request"
	RefResult  = "result"
	RefAudit   = "audit"
)

// Ref points into the audit log.
type Ref struct {
	Kind string     `json:"kind"`
	Hash audit.Hash `json:"hash"`
}

// Response is the outcome of Execute. Every request gets one, whatever
// happened.
type Response struct {
	TaskID   string             `json:"task_id"`
	Policy   string             `json:"policy"`
	Decision validator.Decision `json:"decision"`
	Result   supervisor.Result  `json:"result"`
	// Confidence is filled in by callers, never by the engine.
	Confidence *float64 `json:"confidence,omitempty"`
	// AuditError is set when the request could not be recorded.
	AuditError string `json:"audit_error,omitempty"`
	Refs       []Ref  `json:"refs,omitempty"`
}

// Status is shorthand for r.Result.Status.
func (r *Response) Status() supervisor.Status { return r.Result.Status }

// Ref returns the hash of the given kind, or "".
func (r *Response) Ref(kind string) audit.Hash {
	for _, ref := range r.Refs {
		if ref.Kind == kind {
			return ref.Hash
		}
	}
	return ""
}

// Confidence scores a response: 1 for a clean exit, 0.5 for a non-zero
// exit, 0 otherwise.
func Confidence(r *Response) float64 {
	switch {
	case r.Result.Status != supervisor.Completed || r.Result.ExitCode == nil:
		return 0
	case *r.Result.ExitCode == 0:
		return 1
	default:
		return 0.5
	}
}
