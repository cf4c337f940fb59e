package domain

import "time"

// ArbitrationStatus tracks the admin decision workflow for a disputed case.
type ArbitrationStatus string

const (
	ArbitrationAwaitingDecision ArbitrationStatus = "awaiting_decision"
	ArbitrationDecided          ArbitrationStatus = "decided"
	ArbitrationApplied          ArbitrationStatus = "applied"
)

// ArbitrationDecision is the admin's binding verdict.
type ArbitrationDecision string

const (
	DecisionFavorClient  ArbitrationDecision = "favor_client"
	DecisionFavorPlumber ArbitrationDecision = "favor_plumber"
	DecisionPartial      ArbitrationDecision = "partial"
)

// ArbitrationAction is the concrete remedy applied after a decision.
type ArbitrationAction string

const (
	ActionFullRefund    ArbitrationAction = "full_refund"
	ActionPartialRefund ArbitrationAction = "partial_refund"
	ActionNewJob        ArbitrationAction = "new_job"
	ActionInsurance     ArbitrationAction = "insurance"
	ActionDismiss       ArbitrationAction = "dismiss"
)

// Arbitration records an admin decision against one disputed case. The record
// stays in decided until the ledger effects apply, so a failed application can
// be retried without asking the admin again.
type Arbitration struct {
	ID               string
	CaseID           string
	Status           ArbitrationStatus
	Decision         ArbitrationDecision
	Action           ArbitrationAction
	Explanation      string
	RefundCents      *int64
	DecidedByStaffID *string
	DecidedAt        *time.Time
	AppliedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
