package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

// ArbitrationRepository persists arbitration records.
type ArbitrationRepository interface {
	Create(ctx context.Context, a *domain.Arbitration) error
	GetByID(ctx context.Context, id string) (*domain.Arbitration, error)
	GetByCase(ctx context.Context, caseID string) (*domain.Arbitration, error)
	Update(ctx context.Context, a *domain.Arbitration) error
}

type arbitrationRepository struct {
	pool *pgxpool.Pool
}

// NewArbitrationRepository instantiates repository.
func NewArbitrationRepository(pool *pgxpool.Pool) ArbitrationRepository {
	return &arbitrationRepository{pool: pool}
}

const arbitrationColumns = `id, case_id, status, decision, arb_action, explanation, refund_cents, decided_by, decided_at, applied_at, created_at, updated_at`

func (r *arbitrationRepository) Create(ctx context.Context, a *domain.Arbitration) error {
	const query = `
        INSERT INTO arbitrations (case_id, status)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		a.CaseID,
		a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *arbitrationRepository) GetByID(ctx context.Context, id string) (*domain.Arbitration, error) {
	query := `SELECT ` + arbitrationColumns + ` FROM arbitrations WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *arbitrationRepository) GetByCase(ctx context.Context, caseID string) (*domain.Arbitration, error) {
	query := `SELECT ` + arbitrationColumns + ` FROM arbitrations WHERE case_id=$1 ORDER BY created_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, caseID)
}

func (r *arbitrationRepository) Update(ctx context.Context, a *domain.Arbitration) error {
	const query = `
        UPDATE arbitrations SET status=$1, decision=$2, arb_action=$3, explanation=$4,
            refund_cents=$5, decided_by=$6, decided_at=$7, applied_at=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		a.Status,
		a.Decision,
		a.Action,
		a.Explanation,
		a.RefundCents,
		a.DecidedByStaffID,
		a.DecidedAt,
		a.AppliedAt,
		a.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *arbitrationRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Arbitration, error) {
	var a domain.Arbitration
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID,
		&a.CaseID,
		&a.Status,
		&a.Decision,
		&a.Action,
		&a.Explanation,
		&a.RefundCents,
		&a.DecidedByStaffID,
		&a.DecidedAt,
		&a.AppliedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
