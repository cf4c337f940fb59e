package dto

import (
	"time"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

// CreateCaseRequest payload.
type CreateCaseRequest struct {
	JobID       string              `json:"job_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    domain.CasePriority `json:"priority"`
	Photos      []string            `json:"photos"`
}

// ProviderResponseRequest payload for accept/dispute.
type ProviderResponseRequest struct {
	Action          string     `json:"action"`
	Explanation     string     `json:"explanation"`
	AppointmentDate *time.Time `json:"appointment_date"`
	TimeSlot        *string    `json:"time_slot"`
}

// ScheduleInterventionRequest payload.
type ScheduleInterventionRequest struct {
	Date time.Time `json:"date"`
	Slot *string   `json:"slot"`
}

// ReportDamageRequest payload.
type ReportDamageRequest struct {
	AmountCents *int64  `json:"amount_cents"`
	Resolution  *string `json:"resolution"`
}

// AddNoteRequest payload.
type AddNoteRequest struct {
	Message string   `json:"message"`
	Photos  []string `json:"photos"`
}

// ResolveRequest payload.
type ResolveRequest struct {
	Comment string `json:"comment"`
}

// TakeoverRequest payload.
type TakeoverRequest struct {
	ReplacementProviderID *string `json:"replacement_provider_id"`
	Reason                string  `json:"reason"`
}

// ArbitrationDecisionRequest payload.
type ArbitrationDecisionRequest struct {
	Decision    domain.ArbitrationDecision `json:"decision"`
	Action      domain.ArbitrationAction   `json:"action"`
	Explanation string                     `json:"explanation"`
	RefundCents *int64                     `json:"refund_cents"`
}

// CaseSummary response.
type CaseSummary struct {
	ID                 string              `json:"id"`
	CaseKey            string              `json:"case_key"`
	JobID              string              `json:"job_id"`
	Title              string              `json:"title"`
	Status             domain.CaseStatus   `json:"status"`
	Priority           domain.CasePriority `json:"priority"`
	ReportedAt         time.Time           `json:"reported_at"`
	ResponseDeadline   time.Time           `json:"response_deadline"`
	ResolutionDeadline time.Time           `json:"resolution_deadline"`
	Disputed           bool                `json:"disputed"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// CaseDetailResponse provides full case info.
type CaseDetailResponse struct {
	ID                         string                   `json:"id"`
	CaseKey                    string                   `json:"case_key"`
	JobID                      string                   `json:"job_id"`
	ClientID                   string                   `json:"client_id"`
	ProviderID                 string                   `json:"provider_id"`
	InvoiceID                  string                   `json:"invoice_id"`
	Title                      string                   `json:"title"`
	Description                string                   `json:"description"`
	Photos                     []string                 `json:"photos"`
	Status                     domain.CaseStatus        `json:"status"`
	Priority                   domain.CasePriority      `json:"priority"`
	ReportedAt                 time.Time                `json:"reported_at"`
	ResponseDeadline           time.Time                `json:"response_deadline"`
	ProviderRespondedAt        *time.Time               `json:"provider_responded_at"`
	ResolutionDeadline         time.Time                `json:"resolution_deadline"`
	ResponseRemainingSeconds   int64                    `json:"response_time_remaining_seconds"`
	ResolutionRemainingSeconds int64                    `json:"resolution_time_remaining_seconds"`
	ResolvedAt                 *time.Time               `json:"resolved_at"`
	EscalatedAt                *time.Time               `json:"escalated_at"`
	RespondedLate              bool                     `json:"responded_late"`
	Disputed                   bool                     `json:"disputed"`
	HoldAmountCents            int64                    `json:"hold_amount_cents"`
	HoldApplied                bool                     `json:"hold_applied"`
	InterventionScheduled      bool                     `json:"intervention_scheduled"`
	InterventionDate           *time.Time               `json:"intervention_date"`
	InterventionSlot           *string                  `json:"intervention_slot"`
	InterventionDone           bool                     `json:"intervention_done"`
	DamageReported             bool                     `json:"damage_reported"`
	DamageAmountCents          *int64                   `json:"damage_amount_cents"`
	DamageResolution           *domain.DamageResolution `json:"damage_resolution"`
	InternalTakeover           bool                     `json:"internal_takeover"`
	ReplacementProviderID      *string                  `json:"replacement_provider_id"`
	Notes                      []CaseNoteResponse       `json:"notes"`
	CreatedAt                  time.Time                `json:"created_at"`
	UpdatedAt                  time.Time                `json:"updated_at"`
}

// CaseNoteResponse represents one thread entry.
type CaseNoteResponse struct {
	ID         string             `json:"id"`
	AuthorID   string             `json:"author_id"`
	AuthorRole domain.AccountRole `json:"author_role"`
	Message    string             `json:"message"`
	Photos     []string           `json:"photos"`
	CreatedAt  time.Time          `json:"created_at"`
}

// HoldResponse represents a payment hold.
type HoldResponse struct {
	ID          string            `json:"id"`
	CaseID      string            `json:"case_id"`
	ProviderID  string            `json:"provider_id"`
	AmountCents int64             `json:"amount_cents"`
	Status      domain.HoldStatus `json:"status"`
	Reason      string            `json:"reason"`
	ReleasedAt  *time.Time        `json:"released_at"`
	CreatedAt   time.Time         `json:"created_at"`
}

// CreditNoteResponse represents one credit ledger entry.
type CreditNoteResponse struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"case_id"`
	HoldID      *string   `json:"hold_id"`
	AmountCents int64     `json:"amount_cents"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// ArbitrationResponse represents the arbitration record.
type ArbitrationResponse struct {
	ID          string                     `json:"id"`
	CaseID      string                     `json:"case_id"`
	Status      domain.ArbitrationStatus   `json:"status"`
	Decision    domain.ArbitrationDecision `json:"decision,omitempty"`
	Action      domain.ArbitrationAction   `json:"action,omitempty"`
	Explanation string                     `json:"explanation,omitempty"`
	RefundCents *int64                     `json:"refund_cents"`
	DecidedAt   *time.Time                 `json:"decided_at"`
	AppliedAt   *time.Time                 `json:"applied_at"`
	CreatedAt   time.Time                  `json:"created_at"`
}

// AlertResponse represents an internal alert.
type AlertResponse struct {
	ID             string           `json:"id"`
	CaseID         string           `json:"case_id"`
	Type           domain.AlertType `json:"type"`
	Message        string           `json:"message"`
	AcknowledgedAt *time.Time       `json:"acknowledged_at"`
	CreatedAt      time.Time        `json:"created_at"`
}

// NotificationResponse represents one inbox entry.
type NotificationResponse struct {
	ID             string                  `json:"id"`
	CaseID         string                  `json:"case_id"`
	Type           domain.NotificationType `json:"type"`
	Title          string                  `json:"title"`
	Body           string                  `json:"body"`
	ActionDeadline *time.Time              `json:"action_deadline"`
	ReadAt         *time.Time              `json:"read_at"`
	CreatedAt      time.Time               `json:"created_at"`
}
