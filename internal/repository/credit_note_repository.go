package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

// CreditNoteRepository persists credit notes and their invoice applications.
// Both tables are append-only: rows are never updated or deleted.
type CreditNoteRepository interface {
	Create(ctx context.Context, note *domain.CreditNote) error
	GetByID(ctx context.Context, id string) (*domain.CreditNote, error)
	ListByCase(ctx context.Context, caseID string) ([]domain.CreditNote, error)
	ListByProvider(ctx context.Context, providerID string, limit, offset int) ([]domain.CreditNote, error)
	RecordApplication(ctx context.Context, app *domain.CreditNoteApplication) error
	ListApplications(ctx context.Context, creditNoteID string) ([]domain.CreditNoteApplication, error)
}

type creditNoteRepository struct {
	pool *pgxpool.Pool
}

// NewCreditNoteRepository instantiates repository.
func NewCreditNoteRepository(pool *pgxpool.Pool) CreditNoteRepository {
	return &creditNoteRepository{pool: pool}
}

func (r *creditNoteRepository) Create(ctx context.Context, note *domain.CreditNote) error {
	const query = `
        INSERT INTO credit_notes (case_id, hold_id, provider_id, amount_cents, reason, issued_at)
        VALUES ($1,$2,$3,$4,$5,NOW())
        RETURNING id, issued_at`
	return r.pool.QueryRow(ctx, query,
		note.CaseID,
		note.HoldID,
		note.ProviderID,
		note.AmountCents,
		note.Reason,
	).Scan(&note.ID, &note.IssuedAt)
}

func (r *creditNoteRepository) GetByID(ctx context.Context, id string) (*domain.CreditNote, error) {
	const query = `
        SELECT id, case_id, hold_id, provider_id, amount_cents, reason, issued_at
        FROM credit_notes WHERE id=$1`
	var note domain.CreditNote
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&note.ID,
		&note.CaseID,
		&note.HoldID,
		&note.ProviderID,
		&note.AmountCents,
		&note.Reason,
		&note.IssuedAt,
	); err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *creditNoteRepository) ListByCase(ctx context.Context, caseID string) ([]domain.CreditNote, error) {
	const query = `
        SELECT id, case_id, hold_id, provider_id, amount_cents, reason, issued_at
        FROM credit_notes WHERE case_id=$1 ORDER BY issued_at ASC`
	return r.list(ctx, query, caseID)
}

func (r *creditNoteRepository) ListByProvider(ctx context.Context, providerID string, limit, offset int) ([]domain.CreditNote, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, case_id, hold_id, provider_id, amount_cents, reason, issued_at
        FROM credit_notes WHERE provider_id=$1 ORDER BY issued_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, providerID, limit, offset)
}

func (r *creditNoteRepository) list(ctx context.Context, query string, args ...any) ([]domain.CreditNote, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.CreditNote
	for rows.Next() {
		var note domain.CreditNote
		if err := rows.Scan(
			&note.ID,
			&note.CaseID,
			&note.HoldID,
			&note.ProviderID,
			&note.AmountCents,
			&note.Reason,
			&note.IssuedAt,
		); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func (r *creditNoteRepository) RecordApplication(ctx context.Context, app *domain.CreditNoteApplication) error {
	const query = `
        INSERT INTO credit_note_applications (credit_note_id, invoice_id, amount_cents)
        VALUES ($1,$2,$3)
        RETURNING id, applied_at`
	return r.pool.QueryRow(ctx, query,
		app.CreditNoteID,
		app.InvoiceID,
		app.AmountCents,
	).Scan(&app.ID, &app.AppliedAt)
}

func (r *creditNoteRepository) ListApplications(ctx context.Context, creditNoteID string) ([]domain.CreditNoteApplication, error) {
	const query = `
        SELECT id, credit_note_id, invoice_id, amount_cents, applied_at
        FROM credit_note_applications WHERE credit_note_id=$1 ORDER BY applied_at ASC`
	rows, err := r.pool.Query(ctx, query, creditNoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []domain.CreditNoteApplication
	for rows.Next() {
		var app domain.CreditNoteApplication
		if err := rows.Scan(
			&app.ID,
			&app.CreditNoteID,
			&app.InvoiceID,
			&app.AmountCents,
			&app.AppliedAt,
		); err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}
