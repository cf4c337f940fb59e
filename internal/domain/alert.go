package domain

import "time"

// AlertType enumerates SLA-timer alert categories.
type AlertType string

const (
	AlertUrgentNoResponse    AlertType = "urgent_no_response"
	AlertDeadlineApproaching AlertType = "deadline_approaching"
	AlertDeadlineMissed      AlertType = "deadline_missed"
	AlertEscalationRequired  AlertType = "escalation_required"
)

// AfterSalesAlert is an internal notification raised by the deadline engine.
// Alerts are deduplicated per (case, type) so a repeated sweep cannot raise
// the same alert twice.
type AfterSalesAlert struct {
	ID             string
	CaseID         string
	Type           AlertType
	Message        string
	RecipientIDs   []string
	AcknowledgedAt *time.Time
	AcknowledgedBy *string
	CreatedAt      time.Time
}

// Acknowledged reports whether the alert has been handled.
func (a *AfterSalesAlert) Acknowledged() bool {
	return a.AcknowledgedAt != nil
}
