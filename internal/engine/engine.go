// Package engine runs commands end to end: validate against a policy,
// launch in the sandbox under the policy's concurrency limit, supervise to
// completion, and record the outcome in the audit log.
//
// Execute never returns an error. Every failure mode, from an unknown
// policy to a broken audit store, becomes a status and reason in the
// Response.
package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/xdg/warden/internal/audit"
	"github.com/xdg/warden/internal/clog"
	"github.com/xdg/warden/internal/pathutil"
	"github.com/xdg/warden/internal/policy"
	"github.com/xdg/warden/internal/sandbox"
	"github.com/xdg/warden/internal/supervisor"
	"github.com/xdg/warden/internal/validator"
)

const maxTaskIDLength = 128

var taskIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Config wires an Engine to its collaborators. All fields are required.
type Config struct {
	Policies   *policy.Store
	Launcher   sandbox.Launcher
	Supervisor *supervisor.Supervisor
	Recorder   *audit.Recorder
}

// Engine is safe for concurrent use.
type Engine struct {
	policies *policy.Store
	launcher sandbox.Launcher
	sup      *supervisor.Supervisor
	recorder *audit.Recorder
	now      func() time.Time

	mu    sync.Mutex
	pools map[string]*pool
}

// New returns an Engine.
func New(cfg Config) (*Engine, error) {
	switch {
	case cfg.Policies == nil:
		return nil, errors.New("engine: policy store is required")
	case cfg.Launcher == nil:
		return nil, errors.New("engine: sandbox launcher is required")
	case cfg.Supervisor == nil:
		return nil, errors.New("engine: supervisor is required")
	case cfg.Recorder == nil:
		return nil, errors.New("engine: audit recorder is required")
	}
	return &Engine{
		policies: cfg.Policies,
		launcher: cfg.Launcher,
		sup:      cfg.Supervisor,
		recorder: cfg.Recorder,
		now:      time.Now,
		pools:    make(map[string]*pool),
	}, nil
}

// Policies returns the engine's policy store.
func (e *Engine) Policies() *policy.Store { return e.policies }

// Recorder returns the engine's audit recorder.
func (e *Engine) Recorder() *audit.Recorder { return e.recorder }

// Lookup resolves an audit hash from one of the engine's responses.
func (e *Engine) Lookup(ctx context.Context, h audit.Hash) (audit.Lookup, error) {
	return e.recorder.Lookup(ctx, h)
}

// Check validates command against the named policy without running it.
func (e *Engine) Check(command, policyID string) validator.Decision {
	p, err := e.policies.Lookup(policyID)
	if err != nil {
		p = nil
	}
	return validator.Validate(command, p)
}

// Execute runs req and returns its outcome. It blocks until the command
// finishes, times out, or ctx is done; on ctx cancellation the command is
// killed the same way as on timeout.
func (e *Engine) Execute(ctx context.Context, req Request) Response {
	if req.TaskID == "" {
		req.TaskID = fmt.Sprintf("task-%d", e.now().UnixNano())
	}
	log := clog.Task(req.TaskID)
	log.Debug("engine: received policy=%s workdir=%s", req.Policy, req.WorkDir)

	resp := Response{TaskID: req.TaskID, Policy: req.Policy}
	decision, p := e.decide(req)

	var res supervisor.Result
	if decision.IsAllowed() {
		log.Debug("engine: %s", decision)
		res, decision = e.run(ctx, req, p, decision, log)
	} else {
		log.Info("engine: %s: %q", decision, req.Command)
		res = rejected(decision)
	}

	resp.Decision = decision
	resp.Result = res
	e.record(ctx, req, &resp, log)
	return resp
}

// decide resolves everything static about req: task ID, policy, command
// and working directory. Nothing here touches a process.
func (e *Engine) decide(req Request) (validator.Decision, *policy.Policy) {
	if len(req.TaskID) > maxTaskIDLength || !taskIDPattern.MatchString(req.TaskID) {
		return validator.Deny("invalid task id"), nil
	}

	p, err := e.policies.Lookup(req.Policy)
	if err != nil {
		p = nil
	}
	d := validator.Validate(req.Command, p)
	if !d.IsAllowed() {
		return d, nil
	}

	if _, err := pathutil.ResolveWorkdir(req.WorkDir); err != nil {
		return validator.Deny(err.Error()), nil
	}
	return d, p
}

func rejected(d validator.Decision) supervisor.Result {
	reason := supervisor.ReasonDeniedByPolicy
	if d.Verdict == validator.BlockedByPattern {
		reason = supervisor.ReasonBlockedByPattern
	}
	return supervisor.Rejected(supervisor.Blocked, reason, d.Reason)
}

// run launches an allowed request once a slot under its policy is free.
// A launch-time refusal turns the decision into a denial.
func (e *Engine) run(ctx context.Context, req Request, p *policy.Policy, allowed validator.Decision, log clog.Scope) (supervisor.Result, validator.Decision) {
	pl := e.pool(p)
	if err := pl.acquire(ctx); err != nil {
		log.Info("engine: gave up waiting for a %s slot: %v", p.ID, err)
		return supervisor.Rejected(supervisor.Failed, supervisor.ReasonCanceled, fmt.Sprintf("canceled while queued: %v", err)), allowed
	}
	defer pl.release()

	h, err := e.launcher.Launch(ctx, sandbox.Spec{Command: req.Command, WorkDir: req.WorkDir})
	if err != nil {
		return e.launchFailure(ctx, err, allowed, log)
	}
	log.Debug("engine: launched pid=%d", h.Pid())

	res := e.sup.Run(ctx, h, req.Timeout)
	log.Debug("engine: %s reason=%s elapsed=%s", res.Status, res.Reason, res.Elapsed)
	return res, allowed
}

func (e *Engine) launchFailure(ctx context.Context, err error, allowed validator.Decision, log clog.Scope) (supervisor.Result, validator.Decision) {
	switch {
	case errors.Is(err, sandbox.ErrWorkdirBusy):
		d := validator.Deny("working directory busy")
		log.Info("engine: %v", err)
		return rejected(d), d
	case errors.Is(err, pathutil.ErrInvalidWorkdir):
		d := validator.Deny(err.Error())
		log.Info("engine: %v", err)
		return rejected(d), d
	case errors.Is(err, sandbox.ErrSandboxUnavailable):
		log.Warn("engine: %v", err)
		return supervisor.Rejected(supervisor.Failed, supervisor.ReasonSandboxUnavailable, err.Error()), allowed
	case ctx.Err() != nil:
		return supervisor.Rejected(supervisor.Failed, supervisor.ReasonCanceled, err.Error()), allowed
	default:
		log.Error("engine: launch: %v", err)
		return supervisor.Rejected(supervisor.Failed, supervisor.ReasonInternalFailure, err.Error()), allowed
	}
}

func (e *Engine) pool(p *policy.Policy) *pool {
	e.mu.Lock()
	defer e.mu.Unlock()

	pl, ok := e.pools[p.ID]
	if !ok {
		pl = newPool(p.Concurrency.Slots())
		e.pools[p.ID] = pl
	}
	return pl
}

// Stats reports how many commands are running and queued under a policy.
func (e *Engine) Stats(policyID string) (active, queued int) {
	e.mu.Lock()
	pl, ok := e.pools[policyID]
	e.mu.Unlock()
	if !ok {
		return 0, 0
	}
	return pl.stats()
}

// record appends the single audit entry for req. The command has already
// run; a recording failure is reported without undoing anything.
func (e *Engine) record(ctx context.Context, req Request, resp *Response, log clog.Scope) {
	// The entry must be written even when the caller has gone away.
	ctx = context.WithoutCancel(ctx)

	h, err := e.appendEntry(ctx, req, resp)
	if err != nil {
		log.Error("engine: audit: %v", err)
		resp.AuditError = err.Error()
		resp.Refs = nil
		resp.Result.Status = supervisor.Failed
		resp.Result.Reason = supervisor.ReasonInternalFailure
		resp.Result.Detail = fmt.Sprintf("audit record failed: %v", err)
		return
	}
	resp.Refs = append(resp.Refs, Ref{Kind: RefAudit, Hash: h})
	log.Debug("engine: audited %s", h)
}

func (e *Engine) appendEntry(ctx context.Context, req Request, resp *Response) (audit.Hash, error) {
	reqHash, err := e.recorder.Put(ctx, req)
	if err != nil {
		return "", fmt.Errorf("store request: %w", err)
	}
	resp.Refs = append(resp.Refs, Ref{Kind: RefRequest, Hash: reqHash})

	resHash, err := e.recorder.Put(ctx, resp.Result)
	if err != nil {
		return "", fmt.Errorf("store result: %w", err)
	}
	resp.Refs = append(resp.Refs, Ref{Kind: RefResult, Hash: resHash})

	res := resp.Result
	d := resp.Decision
	return e.recorder.Record(ctx, audit.Entry{
		TaskID:  req.TaskID,
		Policy:  req.Policy,
		Command: req.Command,
		Request: reqHash,
		Decision: audit.Decision{
			Verdict: d.Verdict.String(),
			Pattern: d.Pattern,
			Rule:    d.Rule,
			Reason:  d.Reason,
		},
		Status:   string(res.Status),
		Reason:   string(res.Reason),
		ExitCode: res.ExitCode,
		Elapsed:  res.Elapsed,
		Result:   resHash,
	})
}
