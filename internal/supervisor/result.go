package supervisor

import "time"

// Status is the terminal state of one request.
type Status string

const (
	Completed Status = "completed"
	TimedOut  Status = "timed_out"
	Blocked   Status = "blocked"
	Failed    Status = "failed"
)

// Reason classifies why a request did not simply complete.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonBlockedByPattern   Reason = "BlockedByPattern"
	ReasonDeniedByPolicy     Reason = "DeniedByPolicy"
	ReasonSandboxUnavailable Reason = "SandboxUnavailable"
	ReasonTimeoutExceeded    Reason = "TimeoutExceeded"
	ReasonNonUTF8Output      Reason = "NonUtf8Output"
	ReasonInternalFailure    Reason = "InternalFailure"
	ReasonCanceled           Reason = "Canceled"
	ReasonKilled             Reason = "Killed"
)

// TruncationNotice is appended by Stream.Text to truncated output.
const TruncationNotice = "\n... [output truncated]"

// Stream is one captured output stream. Data holds at most the capture
// limit; Total counts every byte the process wrote.
type Stream struct {
	Data      string `json:"data"`
	Truncated bool   `json:"truncated"`
	Total     int64  `json:"total"`
}

// Text returns Data with the truncation notice when it applies.
func (s Stream) Text() string {
	if s.Truncated {
		return s.Data + TruncationNotice
	}
	return s.Data
}

// Result is the immutable outcome of one request. ExitCode is nil when the
// process never ran or was killed before exiting.
type Result struct {
	Status   Status        `json:"status"`
	Reason   Reason        `json:"reason,omitempty"`
	Detail   string        `json:"detail,omitempty"`
	Stdout   Stream        `json:"stdout"`
	Stderr   Stream        `json:"stderr"`
	ExitCode *int          `json:"exit_code,omitempty"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// Rejected returns the result for a request that never reached a process.
func Rejected(status Status, reason Reason, detail string) Result {
	return Result{Status: status, Reason: reason, Detail: detail}
}

// Truncated reports whether either stream was cut at the capture limit.
func (r Result) Truncated() bool {
	return r.Stdout.Truncated || r.Stderr.Truncated
}
