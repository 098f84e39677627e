package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RiskLevel classifies a command's destructive potential. Assigned once at
// proposal time from the compiled rule table and never re-evaluated.
type RiskLevel string

const (
	RiskSafe      RiskLevel = "safe"
	RiskMedium    RiskLevel = "medium"
	RiskHigh      RiskLevel = "high"
	RiskForbidden RiskLevel = "forbidden"
)

// RequiresApproval reports whether this risk level needs a human sign-off
// before execution.
func (r RiskLevel) RequiresApproval() bool {
	return r == RiskMedium || r == RiskHigh
}

// Tier is the autonomy level of a proposed action.
// Tier 1 diagnostics are auto-approved, Tier 2 remediation requires human
// approval, Tier 3 proactive maintenance is auto-approved under a stricter
// rate limit. Risk classification overrides autonomy: a medium or high
// risk payload requires approval at every tier.
type Tier int

const (
	TierDiagnostic  Tier = 1
	TierRemediation Tier = 2
	TierProactive   Tier = 3
)

type ActionKind string

const (
	KindCommand   ActionKind = "command"   // opaque shell command string
	KindOperation ActionKind = "operation" // structured named operation
)

type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusApproved  ActionStatus = "approved"
	ActionStatusExecuting ActionStatus = "executing" // claimed by exactly one executor
	ActionStatusRejected  ActionStatus = "rejected"
	ActionStatusCancelled ActionStatus = "cancelled"
	ActionStatusExecuted  ActionStatus = "executed"
	ActionStatusFailed    ActionStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s ActionStatus) Terminal() bool {
	switch s {
	case ActionStatusRejected, ActionStatusCancelled, ActionStatusExecuted, ActionStatusFailed:
		return true
	default:
		return false
	}
}

// CanTransition checks if an action state transition is allowed.
// Allowed: pending->approved, pending->rejected, pending->cancelled,
// approved->executing, executing->executed, executing->failed.
// An executing action moves back to approved when execution is refused
// before spawning (rate limit, open breaker).
func (s ActionStatus) CanTransition(to ActionStatus) bool {
	switch s {
	case ActionStatusPending:
		return to == ActionStatusApproved || to == ActionStatusRejected || to == ActionStatusCancelled
	case ActionStatusApproved:
		return to == ActionStatusExecuting
	case ActionStatusExecuting:
		return to == ActionStatusExecuted || to == ActionStatusFailed || to == ActionStatusApproved
	default:
		return false
	}
}

// ExecutionMode tags how an execution request resolved.
type ExecutionMode string

const (
	ModeLive             ExecutionMode = "live"
	ModeDryRun           ExecutionMode = "dry_run"
	ModeForbidden        ExecutionMode = "forbidden"
	ModeApprovalRequired ExecutionMode = "approval_required"
	ModeRateLimited      ExecutionMode = "rate_limited"
	ModeCircuitOpen      ExecutionMode = "circuit_open"
)

// ExecutionResult is the outcome of a single execution attempt. Immutable
// once written; owned by the Action that produced it.
type ExecutionResult struct {
	Success   bool          `json:"success"`
	Stdout    string        `json:"stdout,omitempty"`
	Stderr    string        `json:"stderr,omitempty"`
	ExitCode  *int          `json:"exit_code"` // nil when the process timed out or never ran
	Duration  time.Duration `json:"duration"`
	RiskLevel RiskLevel     `json:"risk_level"`
	Mode      ExecutionMode `json:"mode"`
	Detail    string        `json:"detail,omitempty"`
}

// Action is a proposed unit of work tracked through the approval and
// execution lifecycle. RiskLevel and Tier are assigned once at creation;
// only Status and the approval/execution fields mutate. Terminal actions
// are retained for audit, never hard-deleted.
type Action struct {
	ID          uuid.UUID        `json:"id"`
	Kind        ActionKind       `json:"kind"`
	Name        string           `json:"name"`   // stable action name, keys the circuit breaker
	Target      string           `json:"target"` // host/service the action applies to
	Payload     string           `json:"payload"`
	RiskLevel   RiskLevel        `json:"risk_level"`
	Tier        Tier             `json:"tier"`
	Status      ActionStatus     `json:"status"`
	RequestedBy string           `json:"requested_by"`
	RequestedAt time.Time        `json:"requested_at"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
	ApprovedBy  string           `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time       `json:"approved_at,omitempty"`
	RejectedBy  string           `json:"rejected_by,omitempty"`
	RejectedAt  *time.Time       `json:"rejected_at,omitempty"`
	RejectedFor string           `json:"rejected_for,omitempty"`
	ExecutedAt  *time.Time       `json:"executed_at,omitempty"`
	Result      *ExecutionResult `json:"result,omitempty"`
}

// Expired reports whether a pending action has outlived its approval window.
func (a *Action) Expired(now time.Time) bool {
	return a.Status == ActionStatusPending && a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

// PreAuthorization is a standing approval for an exact action-name+target
// pair. Tier-2 actions matching a live pre-authorization skip the pending
// queue.
type PreAuthorization struct {
	ID         uuid.UUID  `json:"id"`
	ActionName string     `json:"action_name"`
	Target     string     `json:"target"`
	GrantedBy  string     `json:"granted_by"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Live reports whether the pre-authorization is still in effect.
func (p *PreAuthorization) Live(now time.Time) bool {
	return p.ExpiresAt == nil || now.Before(*p.ExpiresAt)
}

type ActionRepository interface {
	Create(ctx context.Context, a *Action) error
	GetByID(ctx context.Context, id uuid.UUID) (*Action, error)
	List(ctx context.Context, limit, offset int) ([]*Action, error)
	ListByStatus(ctx context.Context, status ActionStatus, limit int) ([]*Action, error)
	// UpdateStatusIf performs a conditional compare-and-set on status.
	// Returns ErrConflict when the current status does not match expected,
	// so a concurrent approve/reject race resolves to exactly one winner.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected, next ActionStatus) error
	SetApproved(ctx context.Context, id uuid.UUID, approver string, at time.Time) error
	SetRejected(ctx context.Context, id uuid.UUID, rejecter, reason string, at time.Time) error
	SetExecuted(ctx context.Context, id uuid.UUID, status ActionStatus, at time.Time, result *ExecutionResult) error
}

type PreAuthRepository interface {
	Create(ctx context.Context, p *PreAuthorization) error
	Find(ctx context.Context, actionName, target string) (*PreAuthorization, error)
	List(ctx context.Context) ([]*PreAuthorization, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
