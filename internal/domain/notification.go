package domain

import "time"

// NotificationType categorizes outward-facing messages derived from case events.
type NotificationType string

const (
	NotificationCaseReported        NotificationType = "case_reported"
	NotificationCaseAcknowledged    NotificationType = "case_acknowledged"
	NotificationCaseEscalated       NotificationType = "case_escalated"
	NotificationCaseDisputed        NotificationType = "case_disputed"
	NotificationCaseResolved        NotificationType = "case_resolved"
	NotificationCaseClosed          NotificationType = "case_closed"
	NotificationArbitrationDecided  NotificationType = "arbitration_decided"
	NotificationHoldApplied         NotificationType = "hold_applied"
	NotificationHoldReleased        NotificationType = "hold_released"
	NotificationCreditNoteIssued    NotificationType = "credit_note_issued"
	NotificationInterventionPlanned NotificationType = "intervention_planned"
)

// AfterSalesNotification is a per-recipient message derived from a case event.
// Delivery happens out of band; the row is the source of truth for the UI.
type AfterSalesNotification struct {
	ID             string
	CaseID         string
	RecipientID    string
	RecipientRole  AccountRole
	Type           NotificationType
	Title          string
	Body           string
	ActionDeadline *time.Time
	ActionURL      *string
	ReadAt         *time.Time
	DeliveredAt    *time.Time
	CreatedAt      time.Time
}
