package executor

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/aegis/internal/classify"
	"github.com/gosuda/aegis/internal/domain"
	"github.com/gosuda/aegis/internal/guard"
	"github.com/gosuda/aegis/internal/metrics"
)

// Request describes one execution attempt.
type Request struct {
	ActionID *uuid.UUID    // persisted action, when executing through the approval workflow
	Name     string        // stable action name; keys the circuit breaker
	Command  string        // opaque command payload
	Caller   string        // keys the rate limiter
	Approved bool          // prior approval context (human sign-off or auto-approval)
	Timeout  time.Duration // zero means the executor default
}

// SafeExecutor runs commands through the full safety pipeline:
// classify -> approval gate -> rate limit -> circuit breaker -> bounded
// spawn -> breaker update -> audit. Every outcome is normalized into a
// domain.ExecutionResult; no raw execution error escapes to the caller.
type SafeExecutor struct {
	classifier *classify.Classifier
	limiter    *guard.RateLimiter
	breakers   *guard.BreakerSet
	runner     Runner
	audit      domain.AuditRepository
	metrics    *metrics.Metrics
	timeout    time.Duration
}

func New(
	classifier *classify.Classifier,
	limiter *guard.RateLimiter,
	breakers *guard.BreakerSet,
	runner Runner,
	audit domain.AuditRepository,
	m *metrics.Metrics,
	defaultTimeout time.Duration,
) *SafeExecutor {
	return &SafeExecutor{
		classifier: classifier,
		limiter:    limiter,
		breakers:   breakers,
		runner:     runner,
		audit:      audit,
		metrics:    m,
		timeout:    defaultTimeout,
	}
}

// Breakers exposes the breaker set for operator overrides and stats.
func (e *SafeExecutor) Breakers() *guard.BreakerSet { return e.breakers }

// Execute runs the safety pipeline for req. The returned result's Mode
// tags how the attempt resolved; Success is true only for a live run that
// exited zero.
func (e *SafeExecutor) Execute(ctx context.Context, req Request) domain.ExecutionResult {
	verdict := e.classifier.Classify(req.Command)

	if !verdict.Allowed {
		log.Error().
			Str("caller", req.Caller).
			Str("command", req.Command).
			Str("reason", verdict.Reason).
			Msg("executor: forbidden command blocked")
		res := domain.ExecutionResult{
			RiskLevel: verdict.Risk,
			Mode:      domain.ModeForbidden,
			Detail:    verdict.Reason,
		}
		e.finish(ctx, req, res)
		return res
	}

	if verdict.RequiresApproval && !req.Approved {
		res := domain.ExecutionResult{
			RiskLevel: verdict.Risk,
			Mode:      domain.ModeApprovalRequired,
			Detail:    verdict.Reason,
		}
		e.finish(ctx, req, res)
		return res
	}

	if admitted, retryAfter := e.limiter.Admit(req.Caller); !admitted {
		e.metrics.ObserveRateLimited()
		res := domain.ExecutionResult{
			RiskLevel: verdict.Risk,
			Mode:      domain.ModeRateLimited,
			Detail:    "rate limited; retry after " + retryAfter.Round(time.Second).String(),
		}
		e.appendAudit(ctx, req, domain.AuditRateLimited, map[string]any{
			"retry_after": retryAfter.String(),
		})
		e.metrics.ObserveExecution(res.Mode, 0)
		return res
	}

	key := e.breakerKey(req)
	if !e.breakers.Allow(key) {
		res := domain.ExecutionResult{
			RiskLevel: verdict.Risk,
			Mode:      domain.ModeCircuitOpen,
			Detail:    "circuit open for " + key,
		}
		e.finish(ctx, req, res)
		return res
	}

	res := e.spawn(ctx, req, verdict.Risk)

	// Only execution failures count toward the breaker threshold.
	if res.Success {
		e.breakers.RecordSuccess(key)
	} else {
		e.breakers.RecordFailure(key)
	}

	e.finish(ctx, req, res)
	return res
}

// DryRun walks the identical validation path but never spawns a process.
// Success reports whether a live call would have been admitted past the
// approval gate.
func (e *SafeExecutor) DryRun(ctx context.Context, req Request) domain.ExecutionResult {
	verdict := e.classifier.Classify(req.Command)

	res := domain.ExecutionResult{
		RiskLevel: verdict.Risk,
		Mode:      domain.ModeDryRun,
		Detail:    verdict.Reason,
	}

	switch {
	case !verdict.Allowed:
		res.Detail = "would be blocked: " + verdict.Reason
	case verdict.RequiresApproval && !req.Approved:
		res.Detail = "would require approval: " + verdict.Reason
	case e.breakers.State(e.breakerKey(req)) == guard.BreakerOpen:
		res.Detail = "would be rejected: circuit open"
	default:
		res.Success = true
		res.Detail = "would execute: " + verdict.Reason
	}

	e.appendAudit(ctx, req, domain.AuditClassified, map[string]any{
		"risk_level": string(verdict.Risk),
		"mode":       string(domain.ModeDryRun),
		"detail":     res.Detail,
	})
	e.metrics.ObserveExecution(res.Mode, 0)
	return res
}

// spawn runs the command with a hard deadline. Deadline exceeded kills the
// process and yields a nil exit code.
func (e *SafeExecutor) spawn(ctx context.Context, req Request, risk domain.RiskLevel) domain.ExecutionResult {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, exitCode, err := e.runner.Run(runCtx, req.Command)
	duration := time.Since(start)

	res := domain.ExecutionResult{
		Stdout:    stdout,
		Stderr:    stderr,
		ExitCode:  exitCode,
		Duration:  duration,
		RiskLevel: risk,
		Mode:      domain.ModeLive,
	}

	switch {
	case err != nil && runCtx.Err() != nil:
		res.Detail = "killed after " + timeout.String() + " deadline"
	case err != nil:
		res.Detail = err.Error()
	case exitCode != nil && *exitCode == 0:
		res.Success = true
	case exitCode != nil:
		res.Detail = "exited with code " + strconv.Itoa(*exitCode)
	}

	return res
}

// finish appends the audit entry and bumps counters for a resolved attempt.
func (e *SafeExecutor) finish(ctx context.Context, req Request, res domain.ExecutionResult) {
	event := domain.AuditExecuted
	if res.Mode == domain.ModeForbidden || res.Mode == domain.ModeApprovalRequired {
		event = domain.AuditClassified
	}

	detail := map[string]any{
		"risk_level": string(res.RiskLevel),
		"mode":       string(res.Mode),
		"success":    res.Success,
	}
	if res.Detail != "" {
		detail["detail"] = res.Detail
	}
	if res.ExitCode != nil {
		detail["exit_code"] = *res.ExitCode
	}

	e.appendAudit(ctx, req, event, detail)
	e.metrics.ObserveExecution(res.Mode, res.Duration.Seconds())
}

func (e *SafeExecutor) appendAudit(ctx context.Context, req Request, event domain.AuditEventType, detail map[string]any) {
	entry := &domain.AuditEntry{
		ID:        uuid.New(),
		Actor:     req.Caller,
		ActionID:  req.ActionID,
		EventType: event,
		Detail:    detail,
		CreatedAt: time.Now(),
	}

	if err := e.audit.Record(ctx, entry); err != nil {
		log.Warn().Err(err).Str("event", string(event)).Msg("executor: failed to append audit entry")
	}
}

func (e *SafeExecutor) breakerKey(req Request) string {
	if req.Name != "" {
		return req.Name
	}
	return req.Command
}
