package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/aegis/internal/domain"
)

type PreAuthRepo struct {
	pool *pgxpool.Pool
}

func NewPreAuthRepo(pool *pgxpool.Pool) *PreAuthRepo {
	return &PreAuthRepo{pool: pool}
}

func (r *PreAuthRepo) Create(ctx context.Context, p *domain.PreAuthorization) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO pre_authorizations (id, action_name, target, granted_by, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.ActionName, p.Target, p.GrantedBy, p.CreatedAt, p.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("preAuthRepo.Create: %w", err)
	}

	return nil
}

func (r *PreAuthRepo) Find(ctx context.Context, actionName, target string) (*domain.PreAuthorization, error) {
	var p domain.PreAuthorization

	err := r.pool.QueryRow(ctx,
		`SELECT id, action_name, target, granted_by, created_at, expires_at
		 FROM pre_authorizations
		 WHERE action_name = $1 AND target = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		actionName, target,
	).Scan(&p.ID, &p.ActionName, &p.Target, &p.GrantedBy, &p.CreatedAt, &p.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("preAuthRepo.Find: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("preAuthRepo.Find: %w", err)
	}

	return &p, nil
}

func (r *PreAuthRepo) List(ctx context.Context) ([]*domain.PreAuthorization, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, action_name, target, granted_by, created_at, expires_at
		 FROM pre_authorizations
		 ORDER BY created_at DESC
		 LIMIT 500`,
	)
	if err != nil {
		return nil, fmt.Errorf("preAuthRepo.List: %w", err)
	}
	defer rows.Close()

	var grants []*domain.PreAuthorization
	for rows.Next() {
		var p domain.PreAuthorization
		if err := rows.Scan(&p.ID, &p.ActionName, &p.Target, &p.GrantedBy, &p.CreatedAt, &p.ExpiresAt); err != nil {
			return nil, fmt.Errorf("preAuthRepo.List: scan: %w", err)
		}
		grants = append(grants, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("preAuthRepo.List: rows: %w", err)
	}

	return grants, nil
}

func (r *PreAuthRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM pre_authorizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("preAuthRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("preAuthRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
