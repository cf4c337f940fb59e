package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

// HoldRepository persists payment holds.
type HoldRepository interface {
	Create(ctx context.Context, hold *domain.PaymentHold) error
	GetByID(ctx context.Context, id string) (*domain.PaymentHold, error)
	GetActiveByCase(ctx context.Context, caseID string) (*domain.PaymentHold, error)
	ListByCase(ctx context.Context, caseID string) ([]domain.PaymentHold, error)
	// MarkReleased flips an active hold to released; returns pgx.ErrNoRows
	// when the hold was not active, which makes release one-shot at the
	// storage level regardless of racing callers.
	MarkReleased(ctx context.Context, id string, releasedAt time.Time) error
	// MarkForfeited consumes an active hold for a client-favoring outcome.
	MarkForfeited(ctx context.Context, id string) error
}

type holdRepository struct {
	pool *pgxpool.Pool
}

// NewHoldRepository instantiates repository.
func NewHoldRepository(pool *pgxpool.Pool) HoldRepository {
	return &holdRepository{pool: pool}
}

const holdColumns = `id, case_id, provider_id, amount_cents, reason, status, gateway_ref, applied_at, released_at, created_at, updated_at`

func (r *holdRepository) Create(ctx context.Context, hold *domain.PaymentHold) error {
	const query = `
        INSERT INTO payment_holds (case_id, provider_id, amount_cents, reason, status, gateway_ref, applied_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		hold.CaseID,
		hold.ProviderID,
		hold.AmountCents,
		hold.Reason,
		hold.Status,
		hold.GatewayRef,
		hold.AppliedAt,
	).Scan(&hold.ID, &hold.CreatedAt, &hold.UpdatedAt)
}

func (r *holdRepository) GetByID(ctx context.Context, id string) (*domain.PaymentHold, error) {
	query := `SELECT ` + holdColumns + ` FROM payment_holds WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *holdRepository) GetActiveByCase(ctx context.Context, caseID string) (*domain.PaymentHold, error) {
	query := `SELECT ` + holdColumns + ` FROM payment_holds WHERE case_id=$1 AND status='active'`
	return r.fetchSingle(ctx, query, caseID)
}

func (r *holdRepository) ListByCase(ctx context.Context, caseID string) ([]domain.PaymentHold, error) {
	query := `SELECT ` + holdColumns + ` FROM payment_holds WHERE case_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holds []domain.PaymentHold
	for rows.Next() {
		var hold domain.PaymentHold
		if err := scanHold(rows, &hold); err != nil {
			return nil, err
		}
		holds = append(holds, hold)
	}
	return holds, rows.Err()
}

func (r *holdRepository) MarkReleased(ctx context.Context, id string, releasedAt time.Time) error {
	const query = `
        UPDATE payment_holds SET status='released', released_at=$1, updated_at=NOW()
        WHERE id=$2 AND status='active'`
	cmd, err := r.pool.Exec(ctx, query, releasedAt, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *holdRepository) MarkForfeited(ctx context.Context, id string) error {
	const query = `
        UPDATE payment_holds SET status='forfeited', updated_at=NOW()
        WHERE id=$1 AND status='active'`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *holdRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.PaymentHold, error) {
	var hold domain.PaymentHold
	if err := scanHold(r.pool.QueryRow(ctx, query, arg), &hold); err != nil {
		return nil, err
	}
	return &hold, nil
}

func scanHold(row pgx.Row, hold *domain.PaymentHold) error {
	return row.Scan(
		&hold.ID,
		&hold.CaseID,
		&hold.ProviderID,
		&hold.AmountCents,
		&hold.Reason,
		&hold.Status,
		&hold.GatewayRef,
		&hold.AppliedAt,
		&hold.ReleasedAt,
		&hold.CreatedAt,
		&hold.UpdatedAt,
	)
}
