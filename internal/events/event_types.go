package events

import (
	"time"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCaseReported        EventType = "case_reported"
	EventCaseAcknowledged    EventType = "case_acknowledged"
	EventCaseInProgress      EventType = "case_in_progress"
	EventCaseResolved        EventType = "case_resolved"
	EventCaseEscalated       EventType = "case_escalated"
	EventCaseClosed          EventType = "case_closed"
	EventCaseDisputed        EventType = "case_disputed"
	EventCaseNoteAdded       EventType = "case_note_added"
	EventInternalTakeover    EventType = "internal_takeover"
	EventHoldApplied         EventType = "hold_applied"
	EventHoldReleased        EventType = "hold_released"
	EventCreditNoteIssued    EventType = "credit_note_issued"
	EventArbitrationDecided  EventType = "arbitration_decided"
	EventArbitrationApplied  EventType = "arbitration_applied"
	EventInterventionPlanned EventType = "intervention_planned"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role      domain.AccountRole `json:"role"`
	AccountID *string            `json:"account_id,omitempty"`
	System    bool               `json:"system,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	CaseID    string      `json:"case_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CaseReportedPayload payload.
type CaseReportedPayload struct {
	JobID            string              `json:"job_id"`
	ProviderID       string              `json:"provider_id"`
	Priority         domain.CasePriority `json:"priority"`
	Title            string              `json:"title"`
	ResponseDeadline time.Time           `json:"response_deadline"`
}

// CaseStatusChangedPayload payload for status transitions.
type CaseStatusChangedPayload struct {
	OldStatus domain.CaseStatus `json:"old_status"`
	NewStatus domain.CaseStatus `json:"new_status"`
	Comment   string            `json:"comment,omitempty"`
	Late      bool              `json:"late,omitempty"`
}

// CaseDisputedPayload payload.
type CaseDisputedPayload struct {
	ProviderID    string `json:"provider_id"`
	Explanation   string `json:"explanation"`
	ArbitrationID string `json:"arbitration_id"`
}

// InternalTakeoverPayload payload.
type InternalTakeoverPayload struct {
	ReplacementProviderID *string `json:"replacement_provider_id,omitempty"`
	Reason                string  `json:"reason"`
}

// HoldPayload payload for hold lifecycle events.
type HoldPayload struct {
	HoldID      string            `json:"hold_id"`
	ProviderID  string            `json:"provider_id"`
	AmountCents int64             `json:"amount_cents"`
	Status      domain.HoldStatus `json:"status"`
}

// CreditNotePayload payload.
type CreditNotePayload struct {
	CreditNoteID string `json:"credit_note_id"`
	ProviderID   string `json:"provider_id"`
	AmountCents  int64  `json:"amount_cents"`
	Reason       string `json:"reason"`
}

// ArbitrationPayload payload for decision/application events.
type ArbitrationPayload struct {
	ArbitrationID string                     `json:"arbitration_id"`
	Decision      domain.ArbitrationDecision `json:"decision"`
	Action        domain.ArbitrationAction   `json:"action"`
	RefundCents   *int64                     `json:"refund_cents,omitempty"`
	Explanation   string                     `json:"explanation"`
}

// CaseNoteAddedPayload payload.
type CaseNoteAddedPayload struct {
	NoteID     string             `json:"note_id"`
	AuthorRole domain.AccountRole `json:"author_role"`
	AuthorID   string             `json:"author_id"`
	Preview    string             `json:"preview"`
}

// InterventionPlannedPayload payload.
type InterventionPlannedPayload struct {
	Date *time.Time `json:"date,omitempty"`
	Slot *string    `json:"slot,omitempty"`
}
