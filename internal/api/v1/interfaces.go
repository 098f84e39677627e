package v1

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/aegis/internal/domain"
	"github.com/gosuda/aegis/internal/policy"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Actions() domain.ActionRepository
	PreAuth() domain.PreAuthRepository
	Audit() domain.AuditRepository
}

// ApprovalEngine abstracts the policy engine for handler testing.
// *policy.Engine satisfies this interface.
type ApprovalEngine interface {
	Propose(ctx context.Context, req policy.ProposeRequest) (*domain.Action, error)
	Approve(ctx context.Context, id uuid.UUID, approver string, executeNow bool) (*domain.Action, error)
	Reject(ctx context.Context, id uuid.UUID, rejecter, reason string) (*domain.Action, error)
	Cancel(ctx context.Context, id uuid.UUID, actor string) (*domain.Action, error)
	Execute(ctx context.Context, id uuid.UUID, actor string) (*domain.Action, error)
	DryRun(ctx context.Context, payload, caller string) domain.ExecutionResult
	Get(ctx context.Context, id uuid.UUID) (*domain.Action, error)
	ListPending(ctx context.Context) ([]*domain.Action, error)
	ListAll(ctx context.Context, limit, offset int) ([]*domain.Action, error)
	PreAuthorize(ctx context.Context, name, target, grantedBy string, ttl time.Duration) (*domain.PreAuthorization, error)
	ListPreAuth(ctx context.Context) ([]*domain.PreAuthorization, error)
	RevokePreAuth(ctx context.Context, id uuid.UUID, actor string) error
	ResetBreaker(ctx context.Context, name, actor string)
	GetStats() policy.Stats
}
