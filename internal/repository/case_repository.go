package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

// ErrVersionConflict signals a lost compare-and-swap: another writer updated
// the case first. Callers re-read and decide whether their change still applies.
var ErrVersionConflict = errors.New("case version conflict")

// CaseFilter captures listing parameters.
type CaseFilter struct {
	ClientID    *string
	ProviderID  *string
	JobID       *string
	Statuses    []domain.CaseStatus
	Priorities  []domain.CasePriority
	Disputed    *bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// CaseRepository encapsulates after-sales case persistence.
type CaseRepository interface {
	Create(ctx context.Context, c *domain.AfterSalesCase) error
	GetByID(ctx context.Context, id string) (*domain.AfterSalesCase, error)
	GetByCaseKey(ctx context.Context, key string) (*domain.AfterSalesCase, error)
	// Update writes the case only if the stored version still matches
	// c.Version; on success c.Version is incremented. ErrVersionConflict
	// otherwise.
	Update(ctx context.Context, c *domain.AfterSalesCase) error
	ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.AfterSalesCase, error)
	// ListOpenForSweep returns cases the deadline engine still watches.
	ListOpenForSweep(ctx context.Context) ([]domain.AfterSalesCase, error)
}

type caseRepository struct {
	pool *pgxpool.Pool
}

// NewCaseRepository instantiates repository.
func NewCaseRepository(pool *pgxpool.Pool) CaseRepository {
	return &caseRepository{pool: pool}
}

const caseColumns = `id, case_key, job_id, client_id, provider_id, invoice_id,
	title, description, photos, priority, status,
	reported_at, response_minutes, resolution_hours, intervention_minutes, hold_percent,
	response_deadline, responded_at, resolution_deadline, resolved_at, escalated_at,
	responded_late, disputed,
	hold_amount_cents, hold_applied, hold_released_at,
	intervention_scheduled, intervention_date, intervention_slot, intervention_done,
	damage_reported, damage_amount_cents, damage_resolution,
	internal_takeover, replacement_provider_id,
	version, created_at, updated_at`

func (r *caseRepository) Create(ctx context.Context, c *domain.AfterSalesCase) error {
	const query = `
        INSERT INTO aftersales_cases (
            case_key, job_id, client_id, provider_id, invoice_id,
            title, description, photos, priority, status,
            reported_at, response_minutes, resolution_hours, intervention_minutes, hold_percent,
            response_deadline, resolution_deadline,
            hold_amount_cents, hold_applied, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,1)
        RETURNING id, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		c.CaseKey,
		c.JobID,
		c.ClientID,
		c.ProviderID,
		c.InvoiceID,
		c.Title,
		c.Description,
		c.Photos,
		c.Priority,
		c.Status,
		c.ReportedAt,
		c.SLA.ResponseTimeMinutes,
		c.SLA.ResolutionTimeHours,
		c.SLA.InternalInterventionMinutes,
		c.SLA.HoldPercent,
		c.ProviderResponseDeadline,
		c.ResolutionDeadline,
		c.HoldAmountCents,
		c.HoldApplied,
	).Scan(&c.ID, &c.Version, &c.CreatedAt, &c.UpdatedAt)
}

func (r *caseRepository) Update(ctx context.Context, c *domain.AfterSalesCase) error {
	const query = `
        UPDATE aftersales_cases SET
            status=$1, responded_at=$2, resolved_at=$3, escalated_at=$4,
            responded_late=$5, disputed=$6,
            hold_amount_cents=$7, hold_applied=$8, hold_released_at=$9,
            intervention_scheduled=$10, intervention_date=$11, intervention_slot=$12, intervention_done=$13,
            damage_reported=$14, damage_amount_cents=$15, damage_resolution=$16,
            internal_takeover=$17, replacement_provider_id=$18,
            version=version+1, updated_at=NOW()
        WHERE id=$19 AND version=$20`
	cmd, err := r.pool.Exec(ctx, query,
		c.Status,
		c.ProviderRespondedAt,
		c.ResolvedAt,
		c.EscalatedAt,
		c.RespondedLate,
		c.Disputed,
		c.HoldAmountCents,
		c.HoldApplied,
		c.HoldReleasedAt,
		c.InterventionScheduled,
		c.InterventionDate,
		c.InterventionSlot,
		c.InterventionDone,
		c.DamageReported,
		c.DamageAmountCents,
		c.DamageResolution,
		c.InternalTakeover,
		c.ReplacementProviderID,
		c.ID,
		c.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	c.Version++
	return nil
}

func (r *caseRepository) GetByID(ctx context.Context, id string) (*domain.AfterSalesCase, error) {
	query := fmt.Sprintf(`SELECT %s FROM aftersales_cases WHERE id=$1`, caseColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *caseRepository) GetByCaseKey(ctx context.Context, key string) (*domain.AfterSalesCase, error) {
	query := fmt.Sprintf(`SELECT %s FROM aftersales_cases WHERE case_key=$1`, caseColumns)
	return r.fetchSingle(ctx, query, key)
}

func (r *caseRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.AfterSalesCase, error) {
	var c domain.AfterSalesCase
	if err := scanCase(r.pool.QueryRow(ctx, query, arg), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caseRepository) ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.AfterSalesCase, error) {
	base := fmt.Sprintf(`SELECT %s FROM aftersales_cases`, caseColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("client_id=$%d", len(args)))
	}
	if filter.ProviderID != nil {
		args = append(args, *filter.ProviderID)
		clauses = append(clauses, fmt.Sprintf("provider_id=$%d", len(args)))
	}
	if filter.JobID != nil {
		args = append(args, *filter.JobID)
		clauses = append(clauses, fmt.Sprintf("job_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Disputed != nil {
		args = append(args, *filter.Disputed)
		clauses = append(clauses, fmt.Sprintf("disputed=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCases(rows)
}

func (r *caseRepository) ListOpenForSweep(ctx context.Context) ([]domain.AfterSalesCase, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM aftersales_cases
        WHERE status NOT IN ('closed')
        ORDER BY response_deadline ASC`, caseColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCases(rows)
}

func scanCase(row pgx.Row, c *domain.AfterSalesCase) error {
	return row.Scan(
		&c.ID,
		&c.CaseKey,
		&c.JobID,
		&c.ClientID,
		&c.ProviderID,
		&c.InvoiceID,
		&c.Title,
		&c.Description,
		&c.Photos,
		&c.Priority,
		&c.Status,
		&c.ReportedAt,
		&c.SLA.ResponseTimeMinutes,
		&c.SLA.ResolutionTimeHours,
		&c.SLA.InternalInterventionMinutes,
		&c.SLA.HoldPercent,
		&c.ProviderResponseDeadline,
		&c.ProviderRespondedAt,
		&c.ResolutionDeadline,
		&c.ResolvedAt,
		&c.EscalatedAt,
		&c.RespondedLate,
		&c.Disputed,
		&c.HoldAmountCents,
		&c.HoldApplied,
		&c.HoldReleasedAt,
		&c.InterventionScheduled,
		&c.InterventionDate,
		&c.InterventionSlot,
		&c.InterventionDone,
		&c.DamageReported,
		&c.DamageAmountCents,
		&c.DamageResolution,
		&c.InternalTakeover,
		&c.ReplacementProviderID,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

func scanCases(rows pgx.Rows) ([]domain.AfterSalesCase, error) {
	var result []domain.AfterSalesCase
	for rows.Next() {
		var c domain.AfterSalesCase
		if err := scanCase(rows, &c); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
