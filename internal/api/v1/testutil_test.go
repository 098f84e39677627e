package v1_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/aegis/internal/domain"
	"github.com/gosuda/aegis/internal/policy"
	"github.com/gosuda/aegis/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers — inject actor/role into context for DoCtx
// ---------------------------------------------------------------------------

func actorCtx(actor, role string) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, middleware.ContextKeyActor, actor)
	ctx = context.WithValue(ctx, middleware.ContextKeyRole, role)
	return ctx
}

func agentCtx() context.Context {
	return actorCtx("agent-1", middleware.RoleAgent)
}

func operatorCtx() context.Context {
	return actorCtx("operator-1", middleware.RoleOperator)
}

// ---------------------------------------------------------------------------
// Mock ApprovalEngine
// ---------------------------------------------------------------------------

type mockEngine struct {
	proposeFunc       func(ctx context.Context, req policy.ProposeRequest) (*domain.Action, error)
	approveFunc       func(ctx context.Context, id uuid.UUID, approver string, executeNow bool) (*domain.Action, error)
	rejectFunc        func(ctx context.Context, id uuid.UUID, rejecter, reason string) (*domain.Action, error)
	cancelFunc        func(ctx context.Context, id uuid.UUID, actor string) (*domain.Action, error)
	executeFunc       func(ctx context.Context, id uuid.UUID, actor string) (*domain.Action, error)
	dryRunFunc        func(ctx context.Context, payload, caller string) domain.ExecutionResult
	getFunc           func(ctx context.Context, id uuid.UUID) (*domain.Action, error)
	listPendingFunc   func(ctx context.Context) ([]*domain.Action, error)
	listAllFunc       func(ctx context.Context, limit, offset int) ([]*domain.Action, error)
	preAuthorizeFunc  func(ctx context.Context, name, target, grantedBy string, ttl time.Duration) (*domain.PreAuthorization, error)
	listPreAuthFunc   func(ctx context.Context) ([]*domain.PreAuthorization, error)
	revokePreAuthFunc func(ctx context.Context, id uuid.UUID, actor string) error
	resetBreakerFunc  func(ctx context.Context, name, actor string)
	getStatsFunc      func() policy.Stats
}

func (m *mockEngine) Propose(ctx context.Context, req policy.ProposeRequest) (*domain.Action, error) {
	return m.proposeFunc(ctx, req)
}

func (m *mockEngine) Approve(ctx context.Context, id uuid.UUID, approver string, executeNow bool) (*domain.Action, error) {
	return m.approveFunc(ctx, id, approver, executeNow)
}

func (m *mockEngine) Reject(ctx context.Context, id uuid.UUID, rejecter, reason string) (*domain.Action, error) {
	return m.rejectFunc(ctx, id, rejecter, reason)
}

func (m *mockEngine) Cancel(ctx context.Context, id uuid.UUID, actor string) (*domain.Action, error) {
	return m.cancelFunc(ctx, id, actor)
}

func (m *mockEngine) Execute(ctx context.Context, id uuid.UUID, actor string) (*domain.Action, error) {
	return m.executeFunc(ctx, id, actor)
}

func (m *mockEngine) DryRun(ctx context.Context, payload, caller string) domain.ExecutionResult {
	return m.dryRunFunc(ctx, payload, caller)
}

func (m *mockEngine) Get(ctx context.Context, id uuid.UUID) (*domain.Action, error) {
	return m.getFunc(ctx, id)
}

func (m *mockEngine) ListPending(ctx context.Context) ([]*domain.Action, error) {
	return m.listPendingFunc(ctx)
}

func (m *mockEngine) ListAll(ctx context.Context, limit, offset int) ([]*domain.Action, error) {
	return m.listAllFunc(ctx, limit, offset)
}

func (m *mockEngine) PreAuthorize(ctx context.Context, name, target, grantedBy string, ttl time.Duration) (*domain.PreAuthorization, error) {
	return m.preAuthorizeFunc(ctx, name, target, grantedBy, ttl)
}

func (m *mockEngine) ListPreAuth(ctx context.Context) ([]*domain.PreAuthorization, error) {
	return m.listPreAuthFunc(ctx)
}

func (m *mockEngine) RevokePreAuth(ctx context.Context, id uuid.UUID, actor string) error {
	return m.revokePreAuthFunc(ctx, id, actor)
}

func (m *mockEngine) ResetBreaker(ctx context.Context, name, actor string) {
	m.resetBreakerFunc(ctx, name, actor)
}

func (m *mockEngine) GetStats() policy.Stats {
	return m.getStatsFunc()
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	actions domain.ActionRepository
	preauth domain.PreAuthRepository
	audit   domain.AuditRepository
}

func (m *mockDataStore) Actions() domain.ActionRepository  { return m.actions }
func (m *mockDataStore) PreAuth() domain.PreAuthRepository { return m.preauth }
func (m *mockDataStore) Audit() domain.AuditRepository     { return m.audit }

// ---------------------------------------------------------------------------
// Mock AuditRepository
// ---------------------------------------------------------------------------

type mockAuditRepo struct {
	recordFunc func(ctx context.Context, entry *domain.AuditEntry) error
	listFunc   func(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error)
}

func (m *mockAuditRepo) Record(ctx context.Context, entry *domain.AuditEntry) error {
	return m.recordFunc(ctx, entry)
}

func (m *mockAuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	return m.listFunc(ctx, filter)
}
