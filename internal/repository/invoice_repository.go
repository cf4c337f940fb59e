package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

// InvoiceRepository exposes job and invoice reference data. Claims read it to
// validate their origin and to size holds; this service never writes it.
type InvoiceRepository interface {
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	GetInvoiceByJob(ctx context.Context, jobID string) (*domain.Invoice, error)
}

type invoiceRepository struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepository instantiates repository.
func NewInvoiceRepository(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepository{pool: pool}
}

func (r *invoiceRepository) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	const query = `
        SELECT id, client_id, provider_id, division, description, status, completed_at, created_at
        FROM jobs WHERE id=$1`
	var job domain.Job
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.ClientID,
		&job.ProviderID,
		&job.Division,
		&job.Description,
		&job.Status,
		&job.CompletedAt,
		&job.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *invoiceRepository) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	const query = `
        SELECT id, job_id, client_id, provider_id, amount_cents, issued_at, paid_at
        FROM invoices WHERE id=$1`
	return r.fetchInvoice(ctx, query, id)
}

func (r *invoiceRepository) GetInvoiceByJob(ctx context.Context, jobID string) (*domain.Invoice, error) {
	const query = `
        SELECT id, job_id, client_id, provider_id, amount_cents, issued_at, paid_at
        FROM invoices WHERE job_id=$1`
	return r.fetchInvoice(ctx, query, jobID)
}

func (r *invoiceRepository) fetchInvoice(ctx context.Context, query string, arg any) (*domain.Invoice, error) {
	var inv domain.Invoice
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&inv.ID,
		&inv.JobID,
		&inv.ClientID,
		&inv.ProviderID,
		&inv.AmountCents,
		&inv.IssuedAt,
		&inv.PaidAt,
	); err != nil {
		return nil, err
	}
	return &inv, nil
}
