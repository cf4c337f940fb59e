package domain

import "time"

// CaseStatus enumerates lifecycle states for after-sales cases.
type CaseStatus string

const (
	CaseStatusReported     CaseStatus = "reported"
	CaseStatusAcknowledged CaseStatus = "acknowledged"
	CaseStatusInProgress   CaseStatus = "in_progress"
	CaseStatusResolved     CaseStatus = "resolved"
	CaseStatusEscalated    CaseStatus = "escalated"
	CaseStatusClosed       CaseStatus = "closed"
)

// CasePriority enumerates SLA tiers for a claim.
type CasePriority string

const (
	CasePriorityUrgent    CasePriority = "urgent"
	CasePriorityImportant CasePriority = "important"
	CasePriorityAesthetic CasePriority = "aesthetic"
)

// Priorities lists every tier; the enumeration is closed.
var Priorities = []CasePriority{CasePriorityUrgent, CasePriorityImportant, CasePriorityAesthetic}

// DamageResolution captures how reported property damage is settled.
type DamageResolution string

const (
	DamageResolutionDirectPayment  DamageResolution = "direct_payment"
	DamageResolutionInsuranceClaim DamageResolution = "insurance_claim"
	DamageResolutionBidToOthers    DamageResolution = "bid_to_others"
)

// SLASnapshot freezes the rule-table values that were in force when a case
// was created. Later policy edits never alter in-flight cases.
type SLASnapshot struct {
	ResponseTimeMinutes         int
	ResolutionTimeHours         int
	InternalInterventionMinutes int
	HoldPercent                 int
}

// AfterSalesCase is the aggregate for one claim raised against a completed job.
type AfterSalesCase struct {
	ID         string
	CaseKey    string
	JobID      string
	ClientID   string
	ProviderID string
	InvoiceID  string

	Title       string
	Description string
	Photos      []string
	Priority    CasePriority
	Status      CaseStatus

	ReportedAt               time.Time
	SLA                      SLASnapshot
	ProviderResponseDeadline time.Time
	ProviderRespondedAt      *time.Time
	ResolutionDeadline       time.Time
	ResolvedAt               *time.Time
	EscalatedAt              *time.Time
	RespondedLate            bool
	Disputed                 bool

	HoldAmountCents int64
	HoldApplied     bool
	HoldReleasedAt  *time.Time

	InterventionScheduled bool
	InterventionDate      *time.Time
	InterventionSlot      *string
	InterventionDone      bool

	DamageReported    bool
	DamageAmountCents *int64
	DamageResolution  *DamageResolution

	InternalTakeover      bool
	ReplacementProviderID *string

	// Version increments on every update; writers compare-and-swap on it so a
	// provider action and a timer-driven escalation cannot both win.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Open reports whether the case can still move forward.
func (c *AfterSalesCase) Open() bool {
	return c.Status != CaseStatusClosed
}

// ResponsePending reports whether the provider-response timer is still running.
func (c *AfterSalesCase) ResponsePending() bool {
	return c.ProviderRespondedAt == nil &&
		(c.Status == CaseStatusReported || c.Status == CaseStatusAcknowledged)
}

// CaseNote is one entry in a case's communication thread.
type CaseNote struct {
	ID         string
	CaseID     string
	AuthorID   string
	AuthorRole AccountRole
	Message    string
	Photos     []string
	CreatedAt  time.Time
}
