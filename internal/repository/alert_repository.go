package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

// AlertRepository persists SLA alerts raised by the deadline engine.
type AlertRepository interface {
	Create(ctx context.Context, alert *domain.AfterSalesAlert) error
	GetByID(ctx context.Context, id string) (*domain.AfterSalesAlert, error)
	// ExistsForCase is how the sweep keeps each (case, type) alert single-shot.
	ExistsForCase(ctx context.Context, caseID string, alertType domain.AlertType) (bool, error)
	ListUnacknowledged(ctx context.Context, limit, offset int) ([]domain.AfterSalesAlert, error)
	Acknowledge(ctx context.Context, id, staffID string, at time.Time) error
}

type alertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository instantiates repository.
func NewAlertRepository(pool *pgxpool.Pool) AlertRepository {
	return &alertRepository{pool: pool}
}

const alertColumns = `id, case_id, alert_type, message, recipient_ids, acknowledged_at, acknowledged_by, created_at`

func (r *alertRepository) Create(ctx context.Context, alert *domain.AfterSalesAlert) error {
	const query = `
        INSERT INTO aftersales_alerts (case_id, alert_type, message, recipient_ids)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (case_id, alert_type) DO NOTHING
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		alert.CaseID,
		alert.Type,
		alert.Message,
		alert.RecipientIDs,
	).Scan(&alert.ID, &alert.CreatedAt)
	if err == pgx.ErrNoRows {
		// Conflict: the alert already exists, which callers treat as done.
		return nil
	}
	return err
}

func (r *alertRepository) GetByID(ctx context.Context, id string) (*domain.AfterSalesAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM aftersales_alerts WHERE id=$1`
	var alert domain.AfterSalesAlert
	if err := scanAlert(r.pool.QueryRow(ctx, query, id), &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) ExistsForCase(ctx context.Context, caseID string, alertType domain.AlertType) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM aftersales_alerts WHERE case_id=$1 AND alert_type=$2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, caseID, alertType).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *alertRepository) ListUnacknowledged(ctx context.Context, limit, offset int) ([]domain.AfterSalesAlert, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + alertColumns + `
        FROM aftersales_alerts WHERE acknowledged_at IS NULL
        ORDER BY created_at ASC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []domain.AfterSalesAlert
	for rows.Next() {
		var alert domain.AfterSalesAlert
		if err := scanAlert(rows, &alert); err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (r *alertRepository) Acknowledge(ctx context.Context, id, staffID string, at time.Time) error {
	const query = `
        UPDATE aftersales_alerts SET acknowledged_at=$1, acknowledged_by=$2
        WHERE id=$3 AND acknowledged_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, at, staffID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAlert(row pgx.Row, alert *domain.AfterSalesAlert) error {
	return row.Scan(
		&alert.ID,
		&alert.CaseID,
		&alert.Type,
		&alert.Message,
		&alert.RecipientIDs,
		&alert.AcknowledgedAt,
		&alert.AcknowledgedBy,
		&alert.CreatedAt,
	)
}
