package domain

import "time"

// HoldStatus enumerates the lifecycle of a payment hold.
type HoldStatus string

const (
	// HoldStatusActive means funds are withheld pending claim resolution.
	HoldStatusActive HoldStatus = "active"
	// HoldStatusReleased means the withheld funds were returned to the provider.
	HoldStatusReleased HoldStatus = "released"
	// HoldStatusForfeited means the hold was consumed by a client-favoring outcome.
	HoldStatusForfeited HoldStatus = "forfeited"
)

// PaymentHold withholds a slice of a provider's earnings against one case.
// At most one hold exists per claim cycle; release and forfeiture are one-shot.
type PaymentHold struct {
	ID          string
	CaseID      string
	ProviderID  string
	AmountCents int64
	Reason      string
	Status      HoldStatus
	// GatewayRef is the processor-side identifier backing this hold.
	GatewayRef *string
	AppliedAt  time.Time
	ReleasedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreditNote is a permanent deduction recorded against a provider. Append-only;
// once the owning case closes the record is immutable audit trail.
type CreditNote struct {
	ID          string
	CaseID      string
	HoldID      *string
	ProviderID  string
	AmountCents int64
	Reason      string
	IssuedAt    time.Time
}

// CreditNoteApplication records which invoice later absorbed (part of) a note.
type CreditNoteApplication struct {
	ID           string
	CreditNoteID string
	InvoiceID    string
	AmountCents  int64
	AppliedAt    time.Time
}
