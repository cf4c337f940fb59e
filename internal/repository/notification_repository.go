package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

// NotificationRepository persists outward-facing notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.AfterSalesNotification) error
	GetByID(ctx context.Context, id string) (*domain.AfterSalesNotification, error)
	ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]domain.AfterSalesNotification, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	MarkRead(ctx context.Context, id, recipientID string, at time.Time) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository instantiates repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

const notificationColumns = `id, case_id, recipient_id, recipient_role, notification_type, title, body, action_deadline, action_url, read_at, delivered_at, created_at`

func (r *notificationRepository) Create(ctx context.Context, n *domain.AfterSalesNotification) error {
	const query = `
        INSERT INTO aftersales_notifications (case_id, recipient_id, recipient_role, notification_type, title, body, action_deadline, action_url)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		n.CaseID,
		n.RecipientID,
		n.RecipientRole,
		n.Type,
		n.Title,
		n.Body,
		n.ActionDeadline,
		n.ActionURL,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.AfterSalesNotification, error) {
	query := `SELECT ` + notificationColumns + ` FROM aftersales_notifications WHERE id=$1`
	var n domain.AfterSalesNotification
	if err := scanNotification(r.pool.QueryRow(ctx, query, id), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]domain.AfterSalesNotification, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + notificationColumns + `
        FROM aftersales_notifications WHERE recipient_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.AfterSalesNotification
	for rows.Next() {
		var n domain.AfterSalesNotification
		if err := scanNotification(rows, &n); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func (r *notificationRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE aftersales_notifications SET delivered_at=$1 WHERE id=$2 AND delivered_at IS NULL`
	_, err := r.pool.Exec(ctx, query, at, id)
	return err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID string, at time.Time) error {
	const query = `
        UPDATE aftersales_notifications SET read_at=$1
        WHERE id=$2 AND recipient_id=$3 AND read_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, at, id, recipientID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanNotification(row pgx.Row, n *domain.AfterSalesNotification) error {
	return row.Scan(
		&n.ID,
		&n.CaseID,
		&n.RecipientID,
		&n.RecipientRole,
		&n.Type,
		&n.Title,
		&n.Body,
		&n.ActionDeadline,
		&n.ActionURL,
		&n.ReadAt,
		&n.DeliveredAt,
		&n.CreatedAt,
	)
}
