// Package policy ties the safety primitives together: it classifies
// proposals into tiers, drives the approval state machine, and exposes
// operator controls.
package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/aegis/internal/classify"
	"github.com/gosuda/aegis/internal/domain"
	"github.com/gosuda/aegis/internal/executor"
	"github.com/gosuda/aegis/internal/guard"
	"github.com/gosuda/aegis/internal/metrics"
	"github.com/gosuda/aegis/internal/notify"
	redisstore "github.com/gosuda/aegis/internal/store/redis"
)

// PubSubPublisher abstracts the Redis pub/sub publish operation.
type PubSubPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// ProposeRequest is a caller's request to run a unit of work.
type ProposeRequest struct {
	Kind        domain.ActionKind
	Name        string
	Target      string
	Payload     string
	Tier        domain.Tier
	RequestedBy string
}

// TierStats aggregates outcomes for one autonomy tier.
type TierStats struct {
	Total       int64   `json:"total"`
	Success     int64   `json:"success"`
	Failure     int64   `json:"failure"`
	SuccessRate float64 `json:"success_rate"`
}

// Stats is the operator-facing snapshot of engine activity.
type Stats struct {
	Tiers         map[domain.Tier]TierStats `json:"tiers"`
	Breakers      []guard.BreakerSnapshot   `json:"breakers"`
	RateLimitHits int64                     `json:"rate_limit_hits"`
}

type tierCounter struct {
	total   int64
	success int64
	failure int64
}

// Engine is the policy layer of the safety engine. One instance owns the
// keyed breaker/limiter maps; constructed once at startup and passed by
// reference (no package-level state).
type Engine struct {
	classifier *classify.Classifier
	exec       *executor.SafeExecutor
	tier3Limit *guard.RateLimiter
	actions    domain.ActionRepository
	preauth    domain.PreAuthRepository
	audit      domain.AuditRepository
	notifier   notify.Notifier
	pubsub     PubSubPublisher  // nil when Redis is not configured
	metrics    *metrics.Metrics // nil disables exposition

	approvalTTL time.Duration

	mu            sync.Mutex
	counters      map[domain.Tier]*tierCounter
	rateLimitHits int64

	now func() time.Time
}

// Config carries the engine's collaborators and tunables.
type Config struct {
	Classifier  *classify.Classifier
	Executor    *executor.SafeExecutor
	Tier3Limit  *guard.RateLimiter
	Actions     domain.ActionRepository
	PreAuth     domain.PreAuthRepository
	Audit       domain.AuditRepository
	Notifier    notify.Notifier
	PubSub      PubSubPublisher
	Metrics     *metrics.Metrics
	ApprovalTTL time.Duration
}

func NewEngine(cfg Config) *Engine {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}

	return &Engine{
		classifier:  cfg.Classifier,
		exec:        cfg.Executor,
		tier3Limit:  cfg.Tier3Limit,
		actions:     cfg.Actions,
		preauth:     cfg.PreAuth,
		audit:       cfg.Audit,
		notifier:    notifier,
		pubsub:      cfg.PubSub,
		metrics:     cfg.Metrics,
		approvalTTL: cfg.ApprovalTTL,
		counters:    make(map[domain.Tier]*tierCounter),
		now:         time.Now,
	}
}

// Propose classifies the request and routes it through the tier policy.
//
// Forbidden payloads never produce an executable action: a single audit
// entry is written and ErrForbiddenCommand returned. Tier-1 diagnostics
// auto-approve and execute immediately. Tier-2 remediation persists a
// PENDING action and notifies operators, unless a standing
// pre-authorization covers the exact name+target pair. Tier-3 proactive
// work auto-approves under its own stricter rate limit. Risk trumps
// tier: a medium or high risk payload pends for approval at every tier.
func (e *Engine) Propose(ctx context.Context, req ProposeRequest) (*domain.Action, error) {
	if err := validatePropose(req); err != nil {
		return nil, err
	}

	verdict := e.classifier.Classify(req.Payload)
	e.countTotal(req.Tier)

	if !verdict.Allowed {
		e.appendAudit(ctx, req.RequestedBy, nil, domain.AuditClassified, map[string]any{
			"risk_level": string(verdict.Risk),
			"reason":     verdict.Reason,
			"payload":    req.Payload,
		})
		log.Error().
			Str("requested_by", req.RequestedBy).
			Str("payload", req.Payload).
			Str("reason", verdict.Reason).
			Msg("policy: forbidden proposal rejected")
		return nil, fmt.Errorf("policy.Engine.Propose: %s: %w", verdict.Reason, domain.ErrForbiddenCommand)
	}

	now := e.now()
	action := &domain.Action{
		ID:          uuid.New(),
		Kind:        req.Kind,
		Name:        req.Name,
		Target:      req.Target,
		Payload:     req.Payload,
		RiskLevel:   verdict.Risk,
		Tier:        req.Tier,
		Status:      domain.ActionStatusPending,
		RequestedBy: req.RequestedBy,
		RequestedAt: now,
	}

	// Tier 2 remediation always goes through human approval, and so does
	// any payload the classifier marks medium or high risk regardless of
	// the requested tier. A standing pre-authorization for the exact
	// name+target pair stands in for the human sign-off.
	needsApproval := req.Tier == domain.TierRemediation || verdict.Risk.RequiresApproval()
	if needsApproval && e.preAuthorized(ctx, req.Name, req.Target) {
		needsApproval = false
	}

	if needsApproval {
		expires := now.Add(e.approvalTTL)
		action.ExpiresAt = &expires

		if err := e.actions.Create(ctx, action); err != nil {
			return nil, fmt.Errorf("policy.Engine.Propose: %w", err)
		}

		e.appendAudit(ctx, req.RequestedBy, &action.ID, domain.AuditCreated, map[string]any{
			"risk_level": string(verdict.Risk),
			"tier":       int(req.Tier),
			"reason":     verdict.Reason,
		})
		e.publish(ctx, "action_created", action)

		if err := e.notifier.NotifyPending(ctx, action); err != nil {
			log.Warn().Err(err).Str("action_id", action.ID.String()).Msg("policy: approval notification failed")
		}

		return action, nil
	}

	// Auto-approved path: Tier-3 proactive work gets its own, stricter
	// admission window before anything else happens.
	if req.Tier == domain.TierProactive {
		if admitted, retryAfter := e.tier3Limit.Admit(req.RequestedBy); !admitted {
			e.recordRateLimitHit()
			if e.metrics != nil {
				e.metrics.ObserveRateLimited()
			}
			e.appendAudit(ctx, req.RequestedBy, nil, domain.AuditRateLimited, map[string]any{
				"tier":        int(req.Tier),
				"retry_after": retryAfter.String(),
			})
			return nil, fmt.Errorf("policy.Engine.Propose: tier 3 window full, retry after %s: %w",
				retryAfter.Round(time.Second), domain.ErrRateLimited)
		}
	}

	action.Status = domain.ActionStatusApproved
	action.ApprovedBy = "policy:auto"
	approvedAt := now
	action.ApprovedAt = &approvedAt

	if err := e.actions.Create(ctx, action); err != nil {
		return nil, fmt.Errorf("policy.Engine.Propose: %w", err)
	}

	e.appendAudit(ctx, req.RequestedBy, &action.ID, domain.AuditCreated, map[string]any{
		"risk_level":    string(verdict.Risk),
		"tier":          int(req.Tier),
		"auto_approved": true,
	})
	e.publish(ctx, "action_created", action)

	return e.runAction(ctx, action, req.RequestedBy)
}

// Approve transitions a PENDING action to APPROVED and, when executeNow is
// set, chains straight into execution. Approving an already-APPROVED action
// is a no-op returning the current state; terminal actions report their
// state via ErrInvalidTransition without being re-mutated.
func (e *Engine) Approve(ctx context.Context, id uuid.UUID, approver string, executeNow bool) (*domain.Action, error) {
	action, err := e.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("policy.Engine.Approve: %w", err)
	}

	switch {
	case action.Status == domain.ActionStatusApproved:
		return action, nil // idempotent: no re-trigger
	case action.Status != domain.ActionStatusPending:
		return action, fmt.Errorf("policy.Engine.Approve: action is %s: %w", action.Status, domain.ErrInvalidTransition)
	}

	now := e.now()
	if err := e.actions.SetApproved(ctx, id, approver, now); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Lost the race against a concurrent approve/reject/expiry.
			current, getErr := e.Get(ctx, id)
			if getErr != nil {
				return nil, fmt.Errorf("policy.Engine.Approve: %w", getErr)
			}
			return current, fmt.Errorf("policy.Engine.Approve: action is %s: %w", current.Status, domain.ErrInvalidTransition)
		}
		return nil, fmt.Errorf("policy.Engine.Approve: %w", err)
	}

	action.Status = domain.ActionStatusApproved
	action.ApprovedBy = approver
	action.ApprovedAt = &now

	e.appendAudit(ctx, approver, &id, domain.AuditApproved, nil)
	e.publish(ctx, "action_approved", action)

	if !executeNow {
		return action, nil
	}
	return e.runAction(ctx, action, approver)
}

// Reject transitions a PENDING action to REJECTED. The reason is mandatory.
func (e *Engine) Reject(ctx context.Context, id uuid.UUID, rejecter, reason string) (*domain.Action, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("policy.Engine.Reject: reason is required: %w", domain.ErrValidation)
	}

	action, err := e.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("policy.Engine.Reject: %w", err)
	}

	switch {
	case action.Status == domain.ActionStatusRejected:
		return action, nil // idempotent
	case action.Status != domain.ActionStatusPending:
		return action, fmt.Errorf("policy.Engine.Reject: action is %s: %w", action.Status, domain.ErrInvalidTransition)
	}

	now := e.now()
	if err := e.actions.SetRejected(ctx, id, rejecter, reason, now); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			current, getErr := e.Get(ctx, id)
			if getErr != nil {
				return nil, fmt.Errorf("policy.Engine.Reject: %w", getErr)
			}
			return current, fmt.Errorf("policy.Engine.Reject: action is %s: %w", current.Status, domain.ErrInvalidTransition)
		}
		return nil, fmt.Errorf("policy.Engine.Reject: %w", err)
	}

	action.Status = domain.ActionStatusRejected
	action.RejectedBy = rejecter
	action.RejectedAt = &now
	action.RejectedFor = reason

	e.appendAudit(ctx, rejecter, &id, domain.AuditRejected, map[string]any{"reason": reason})
	e.publish(ctx, "action_rejected", action)

	return action, nil
}

// Cancel transitions a PENDING action to CANCELLED.
func (e *Engine) Cancel(ctx context.Context, id uuid.UUID, actor string) (*domain.Action, error) {
	action, err := e.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("policy.Engine.Cancel: %w", err)
	}

	switch {
	case action.Status == domain.ActionStatusCancelled:
		return action, nil // idempotent
	case action.Status != domain.ActionStatusPending:
		return action, fmt.Errorf("policy.Engine.Cancel: action is %s: %w", action.Status, domain.ErrInvalidTransition)
	}

	if err := e.actions.UpdateStatusIf(ctx, id, domain.ActionStatusPending, domain.ActionStatusCancelled); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Lost the race against a concurrent approve/reject/expiry.
			current, getErr := e.Get(ctx, id)
			if getErr != nil {
				return nil, fmt.Errorf("policy.Engine.Cancel: %w", getErr)
			}
			return current, fmt.Errorf("policy.Engine.Cancel: action is %s: %w", current.Status, domain.ErrInvalidTransition)
		}
		return nil, fmt.Errorf("policy.Engine.Cancel: %w", err)
	}
	action.Status = domain.ActionStatusCancelled

	e.appendAudit(ctx, actor, &id, domain.AuditCancelled, nil)
	e.publish(ctx, "action_cancelled", action)

	return action, nil
}

// Execute runs an already-APPROVED action through the SafeExecutor.
func (e *Engine) Execute(ctx context.Context, id uuid.UUID, actor string) (*domain.Action, error) {
	action, err := e.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("policy.Engine.Execute: %w", err)
	}

	if action.Status != domain.ActionStatusApproved {
		return action, fmt.Errorf("policy.Engine.Execute: action is %s: %w", action.Status, domain.ErrInvalidTransition)
	}

	return e.runAction(ctx, action, actor)
}

// DryRun reports what Execute would do for a payload without running it.
func (e *Engine) DryRun(ctx context.Context, payload, caller string) domain.ExecutionResult {
	return e.exec.DryRun(ctx, executor.Request{Command: payload, Caller: caller})
}

// Get loads an action and applies lazy expiry: reading a PENDING action
// past its deadline transitions it to CANCELLED first.
func (e *Engine) Get(ctx context.Context, id uuid.UUID) (*domain.Action, error) {
	action, err := e.actions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("policy.Engine.Get: %w", err)
	}
	return e.expireIfDue(ctx, action), nil
}

// ListPending returns all actions awaiting approval, expiring stale ones
// on the way out.
func (e *Engine) ListPending(ctx context.Context) ([]*domain.Action, error) {
	actions, err := e.actions.ListByStatus(ctx, domain.ActionStatusPending, 500)
	if err != nil {
		return nil, fmt.Errorf("policy.Engine.ListPending: %w", err)
	}

	fresh := make([]*domain.Action, 0, len(actions))
	for _, a := range actions {
		a = e.expireIfDue(ctx, a)
		if a.Status == domain.ActionStatusPending {
			fresh = append(fresh, a)
		}
	}
	return fresh, nil
}

// ListAll returns every action, newest first.
func (e *Engine) ListAll(ctx context.Context, limit, offset int) ([]*domain.Action, error) {
	actions, err := e.actions.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("policy.Engine.ListAll: %w", err)
	}
	for i, a := range actions {
		actions[i] = e.expireIfDue(ctx, a)
	}
	return actions, nil
}

// PreAuthorize grants a standing approval for an exact name+target pair.
func (e *Engine) PreAuthorize(ctx context.Context, name, target, grantedBy string, ttl time.Duration) (*domain.PreAuthorization, error) {
	if name == "" || target == "" {
		return nil, fmt.Errorf("policy.Engine.PreAuthorize: name and target are required: %w", domain.ErrValidation)
	}

	p := &domain.PreAuthorization{
		ID:         uuid.New(),
		ActionName: name,
		Target:     target,
		GrantedBy:  grantedBy,
		CreatedAt:  e.now(),
	}
	if ttl > 0 {
		expires := p.CreatedAt.Add(ttl)
		p.ExpiresAt = &expires
	}

	if err := e.preauth.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("policy.Engine.PreAuthorize: %w", err)
	}
	return p, nil
}

// ListPreAuth returns every standing pre-authorization.
func (e *Engine) ListPreAuth(ctx context.Context) ([]*domain.PreAuthorization, error) {
	grants, err := e.preauth.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy.Engine.ListPreAuth: %w", err)
	}
	return grants, nil
}

// RevokePreAuth deletes a standing pre-authorization.
func (e *Engine) RevokePreAuth(ctx context.Context, id uuid.UUID, actor string) error {
	if err := e.preauth.Delete(ctx, id); err != nil {
		return fmt.Errorf("policy.Engine.RevokePreAuth: %w", err)
	}
	log.Info().Str("preauth_id", id.String()).Str("actor", actor).Msg("policy: pre-authorization revoked")
	return nil
}

// ResetBreaker is the manual operator override for a stuck breaker.
func (e *Engine) ResetBreaker(ctx context.Context, name, actor string) {
	e.exec.Breakers().Reset(name)
	e.appendAudit(ctx, actor, nil, domain.AuditBreakerClosed, map[string]any{
		"breaker": name,
		"manual":  true,
	})
	log.Info().Str("breaker", name).Str("actor", actor).Msg("policy: breaker manually reset")
}

// GetStats returns per-tier counters, breaker snapshots, and rate-limit hits.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	tiers := make(map[domain.Tier]TierStats, len(e.counters))
	for tier, c := range e.counters {
		s := TierStats{Total: c.total, Success: c.success, Failure: c.failure}
		if done := c.success + c.failure; done > 0 {
			s.SuccessRate = float64(c.success) / float64(done)
		}
		tiers[tier] = s
	}

	return Stats{
		Tiers:         tiers,
		Breakers:      e.exec.Breakers().Snapshot(),
		RateLimitHits: e.rateLimitHits,
	}
}

func (e *Engine) recordRateLimitHit() {
	e.mu.Lock()
	e.rateLimitHits++
	e.mu.Unlock()
}

// runAction claims an approved action for execution, runs it, and persists
// the terminal state. The claim is a conditional APPROVED->EXECUTING update,
// so of two racing callers exactly one spawns a process.
func (e *Engine) runAction(ctx context.Context, action *domain.Action, actor string) (*domain.Action, error) {
	if err := e.actions.UpdateStatusIf(ctx, action.ID, domain.ActionStatusApproved, domain.ActionStatusExecuting); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			current, getErr := e.Get(ctx, action.ID)
			if getErr != nil {
				return nil, fmt.Errorf("policy.Engine: claim execution: %w", getErr)
			}
			return current, fmt.Errorf("policy.Engine: action is %s: %w", current.Status, domain.ErrInvalidTransition)
		}
		return nil, fmt.Errorf("policy.Engine: claim execution: %w", err)
	}
	action.Status = domain.ActionStatusExecuting

	res := e.exec.Execute(ctx, executor.Request{
		ActionID: &action.ID,
		Name:     action.Name,
		Command:  action.Payload,
		Caller:   actor,
		Approved: true,
	})

	switch res.Mode {
	case domain.ModeRateLimited:
		e.recordRateLimitHit()
		// The action goes back to APPROVED; the caller may retry after
		// the window.
		e.releaseClaim(ctx, action)
		action.Result = &res
		return action, fmt.Errorf("policy.Engine: %s: %w", res.Detail, domain.ErrRateLimited)
	case domain.ModeCircuitOpen:
		e.releaseClaim(ctx, action)
		e.enqueueReplay(action)
		action.Result = &res
		return action, fmt.Errorf("policy.Engine: %s: %w", res.Detail, domain.ErrCircuitOpen)
	}

	status := domain.ActionStatusExecuted
	if !res.Success {
		status = domain.ActionStatusFailed
	}
	e.countOutcome(action.Tier, res.Success)

	now := e.now()
	if err := e.actions.SetExecuted(ctx, action.ID, status, now, &res); err != nil {
		return nil, fmt.Errorf("policy.Engine: persist result: %w", err)
	}

	action.Status = status
	action.ExecutedAt = &now
	action.Result = &res

	e.publish(ctx, "action_executed", action)

	return action, nil
}

// releaseClaim returns a claimed action to APPROVED after a retryable
// rejection such as a rate limit or an open breaker.
func (e *Engine) releaseClaim(ctx context.Context, action *domain.Action) {
	if err := e.actions.UpdateStatusIf(ctx, action.ID, domain.ActionStatusExecuting, domain.ActionStatusApproved); err != nil {
		log.Warn().Err(err).Str("action_id", action.ID.String()).Msg("policy: failed to release execution claim")
		return
	}
	action.Status = domain.ActionStatusApproved
}

// enqueueReplay defers one best-effort re-execution of an approved action
// until its breaker closes again. The queue is bounded; when it is full the
// action simply stays APPROVED and the caller retries manually.
func (e *Engine) enqueueReplay(action *domain.Action) {
	id := action.ID
	queued := e.exec.Breakers().Enqueue(action.Name, func() {
		if _, err := e.Execute(context.Background(), id, "policy:replay"); err != nil {
			log.Warn().Err(err).Str("action_id", id.String()).Msg("policy: queued replay failed")
		}
	})
	if !queued {
		log.Debug().Str("action_id", id.String()).Msg("policy: replay not queued")
	}
}

// expireIfDue applies the lazy expiry rule on the read path.
func (e *Engine) expireIfDue(ctx context.Context, action *domain.Action) *domain.Action {
	if !action.Expired(e.now()) {
		return action
	}

	err := e.actions.UpdateStatusIf(ctx, action.ID, domain.ActionStatusPending, domain.ActionStatusCancelled)
	if err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			log.Warn().Err(err).Str("action_id", action.ID.String()).Msg("policy: failed to expire action")
		}
		return action
	}

	action.Status = domain.ActionStatusCancelled
	e.appendAudit(ctx, "policy:expiry", &action.ID, domain.AuditCancelled, map[string]any{"expired": true})
	e.publish(ctx, "action_cancelled", action)

	return action
}

func (e *Engine) preAuthorized(ctx context.Context, name, target string) bool {
	p, err := e.preauth.Find(ctx, name, target)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn().Err(err).Str("action", name).Msg("policy: pre-authorization lookup failed")
		}
		return false
	}
	return p.Live(e.now())
}

func (e *Engine) appendAudit(ctx context.Context, actor string, actionID *uuid.UUID, event domain.AuditEventType, detail map[string]any) {
	entry := &domain.AuditEntry{
		ID:        uuid.New(),
		Actor:     actor,
		ActionID:  actionID,
		EventType: event,
		Detail:    detail,
		CreatedAt: e.now(),
	}
	if err := e.audit.Record(ctx, entry); err != nil {
		log.Warn().Err(err).Str("event", string(event)).Msg("policy: failed to append audit entry")
	}
}

// publish sends a lifecycle event to the firehose channel and to the
// action's own channel, best-effort.
func (e *Engine) publish(ctx context.Context, eventType string, action *domain.Action) {
	if e.pubsub == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"type":   eventType,
		"action": action,
	})
	if err != nil {
		return
	}

	for _, channel := range []string{redisstore.EventsChannel, redisstore.ActionChannel(action.ID)} {
		if pubErr := e.pubsub.Publish(ctx, channel, payload); pubErr != nil {
			log.Warn().Err(pubErr).Str("event", eventType).Str("channel", channel).Msg("policy: failed to publish event")
		}
	}
}

func (e *Engine) countTotal(tier domain.Tier) {
	e.mu.Lock()
	e.counterFor(tier).total++
	e.mu.Unlock()
}

func (e *Engine) countOutcome(tier domain.Tier, success bool) {
	e.mu.Lock()
	c := e.counterFor(tier)
	outcome := "success"
	if success {
		c.success++
	} else {
		c.failure++
		outcome = "failure"
	}
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.ObserveAction(tier, outcome)
	}
}

// counterFor returns the counter for tier. Caller holds e.mu.
func (e *Engine) counterFor(tier domain.Tier) *tierCounter {
	c, ok := e.counters[tier]
	if !ok {
		c = &tierCounter{}
		e.counters[tier] = c
	}
	return c
}

func validatePropose(req ProposeRequest) error {
	switch {
	case req.Name == "":
		return fmt.Errorf("policy.Engine.Propose: name is required: %w", domain.ErrValidation)
	case req.Payload == "":
		return fmt.Errorf("policy.Engine.Propose: payload is required: %w", domain.ErrValidation)
	case req.RequestedBy == "":
		return fmt.Errorf("policy.Engine.Propose: requested_by is required: %w", domain.ErrValidation)
	case req.Tier != domain.TierDiagnostic && req.Tier != domain.TierRemediation && req.Tier != domain.TierProactive:
		return fmt.Errorf("policy.Engine.Propose: unknown tier %d: %w", req.Tier, domain.ErrValidation)
	case req.Kind != domain.KindCommand && req.Kind != domain.KindOperation:
		return fmt.Errorf("policy.Engine.Propose: unknown kind %q: %w", req.Kind, domain.ErrValidation)
	}
	return nil
}
