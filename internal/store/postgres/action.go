package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/aegis/internal/domain"
)

type ActionRepo struct {
	pool *pgxpool.Pool
}

func NewActionRepo(pool *pgxpool.Pool) *ActionRepo {
	return &ActionRepo{pool: pool}
}

const actionColumns = `id, kind, name, target, payload, risk_level, tier, status,
        requested_by, requested_at, expires_at,
        approved_by, approved_at, rejected_by, rejected_at, rejected_for,
        executed_at, result`

func (r *ActionRepo) Create(ctx context.Context, a *domain.Action) error {
	result, err := marshalResult(a.Result)
	if err != nil {
		return fmt.Errorf("actionRepo.Create: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO actions (id, kind, name, target, payload, risk_level, tier, status,
		                      requested_by, requested_at, expires_at,
		                      approved_by, approved_at, rejected_by, rejected_at, rejected_for,
		                      executed_at, result)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		a.ID, a.Kind, a.Name, a.Target, a.Payload, a.RiskLevel, a.Tier, a.Status,
		a.RequestedBy, a.RequestedAt, a.ExpiresAt,
		nullable(a.ApprovedBy), a.ApprovedAt, nullable(a.RejectedBy), a.RejectedAt, nullable(a.RejectedFor),
		a.ExecutedAt, result,
	)
	if err != nil {
		return fmt.Errorf("actionRepo.Create: %w", err)
	}

	return nil
}

func (r *ActionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Action, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+actionColumns+` FROM actions WHERE id = $1`, id)

	a, err := scanAction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("actionRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("actionRepo.GetByID: %w", err)
	}

	return a, nil
}

func (r *ActionRepo) List(ctx context.Context, limit, offset int) ([]*domain.Action, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+actionColumns+` FROM actions
		 ORDER BY requested_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("actionRepo.List: %w", err)
	}
	defer rows.Close()

	return scanActions(rows, "actionRepo.List")
}

func (r *ActionRepo) ListByStatus(ctx context.Context, status domain.ActionStatus, limit int) ([]*domain.Action, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+actionColumns+` FROM actions
		 WHERE status = $1
		 ORDER BY requested_at
		 LIMIT $2`,
		status, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("actionRepo.ListByStatus: %w", err)
	}
	defer rows.Close()

	return scanActions(rows, "actionRepo.ListByStatus")
}

// UpdateStatusIf is a conditional compare-and-set: the WHERE clause pins the
// expected status, so of two racing writers exactly one sees a row updated
// and the other gets ErrConflict.
func (r *ActionRepo) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected, next domain.ActionStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE actions SET status = $1 WHERE id = $2 AND status = $3`,
		next, id, expected,
	)
	if err != nil {
		return fmt.Errorf("actionRepo.UpdateStatusIf: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.conflictOrNotFound(ctx, id, "actionRepo.UpdateStatusIf")
	}

	return nil
}

func (r *ActionRepo) SetApproved(ctx context.Context, id uuid.UUID, approver string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE actions SET status = $1, approved_by = $2, approved_at = $3
		 WHERE id = $4 AND status = $5`,
		domain.ActionStatusApproved, approver, at, id, domain.ActionStatusPending,
	)
	if err != nil {
		return fmt.Errorf("actionRepo.SetApproved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.conflictOrNotFound(ctx, id, "actionRepo.SetApproved")
	}

	return nil
}

func (r *ActionRepo) SetRejected(ctx context.Context, id uuid.UUID, rejecter, reason string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE actions SET status = $1, rejected_by = $2, rejected_at = $3, rejected_for = $4
		 WHERE id = $5 AND status = $6`,
		domain.ActionStatusRejected, rejecter, at, reason, id, domain.ActionStatusPending,
	)
	if err != nil {
		return fmt.Errorf("actionRepo.SetRejected: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.conflictOrNotFound(ctx, id, "actionRepo.SetRejected")
	}

	return nil
}

func (r *ActionRepo) SetExecuted(ctx context.Context, id uuid.UUID, status domain.ActionStatus, at time.Time, result *domain.ExecutionResult) error {
	payload, err := marshalResult(result)
	if err != nil {
		return fmt.Errorf("actionRepo.SetExecuted: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE actions SET status = $1, executed_at = $2, result = $3
		 WHERE id = $4 AND status = $5`,
		status, at, payload, id, domain.ActionStatusExecuting,
	)
	if err != nil {
		return fmt.Errorf("actionRepo.SetExecuted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.conflictOrNotFound(ctx, id, "actionRepo.SetExecuted")
	}

	return nil
}

// conflictOrNotFound disambiguates a zero-row update: the row either exists
// in a different status (conflict) or does not exist at all.
func (r *ActionRepo) conflictOrNotFound(ctx context.Context, id uuid.UUID, caller string) error {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM actions WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s: %w", caller, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", caller, domain.ErrNotFound)
	}

	return fmt.Errorf("%s: %w", caller, domain.ErrConflict)
}

func scanAction(row pgx.Row) (*domain.Action, error) {
	var a domain.Action
	var result []byte
	var approvedBy, rejectedBy, rejectedFor *string

	err := row.Scan(
		&a.ID, &a.Kind, &a.Name, &a.Target, &a.Payload, &a.RiskLevel, &a.Tier, &a.Status,
		&a.RequestedBy, &a.RequestedAt, &a.ExpiresAt,
		&approvedBy, &a.ApprovedAt, &rejectedBy, &a.RejectedAt, &rejectedFor,
		&a.ExecutedAt, &result,
	)
	if err != nil {
		return nil, err
	}

	if approvedBy != nil {
		a.ApprovedBy = *approvedBy
	}
	if rejectedBy != nil {
		a.RejectedBy = *rejectedBy
	}
	if rejectedFor != nil {
		a.RejectedFor = *rejectedFor
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &a.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return &a, nil
}

func scanActions(rows pgx.Rows, caller string) ([]*domain.Action, error) {
	var actions []*domain.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return actions, nil
}

func marshalResult(result *domain.ExecutionResult) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return payload, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
