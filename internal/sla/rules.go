package sla

import (
	"time"

	"github.com/spec-kit/aftersales-service/internal/config"
	"github.com/spec-kit/aftersales-service/internal/domain"
)

// Policy is the SLA budget for one priority tier.
type Policy struct {
	ResponseTimeMinutes         int
	ResolutionTimeHours         int
	InternalInterventionMinutes int
}

// RuleTable maps priority tiers to time budgets plus the global hold bounds.
// It is injected configuration, not a hardcoded table; cases snapshot the
// values in force at creation time.
type RuleTable struct {
	policies map[domain.CasePriority]Policy

	// Hold bounds are global, not per-priority.
	HoldPercent  int
	MinHoldCents int64
	MaxHoldCents int64

	// ApproachingLead is how long before a response deadline the engine raises
	// a deadline_approaching alert.
	ApproachingLead time.Duration
}

// DefaultPolicies returns the stock SLA budgets per tier.
func DefaultPolicies() map[domain.CasePriority]Policy {
	return map[domain.CasePriority]Policy{
		domain.CasePriorityUrgent:    {ResponseTimeMinutes: 60, ResolutionTimeHours: 24, InternalInterventionMinutes: 30},
		domain.CasePriorityImportant: {ResponseTimeMinutes: 240, ResolutionTimeHours: 72, InternalInterventionMinutes: 120},
		domain.CasePriorityAesthetic: {ResponseTimeMinutes: 1440, ResolutionTimeHours: 168, InternalInterventionMinutes: 480},
	}
}

// NewRuleTable builds a rule table from injected policies and hold bounds.
func NewRuleTable(policies map[domain.CasePriority]Policy, holdPercent int, minHoldCents, maxHoldCents int64, approachingLead time.Duration) *RuleTable {
	if len(policies) == 0 {
		policies = DefaultPolicies()
	}
	if holdPercent <= 0 {
		holdPercent = 25
	}
	if approachingLead <= 0 {
		approachingLead = 30 * time.Minute
	}
	return &RuleTable{
		policies:        policies,
		HoldPercent:     holdPercent,
		MinHoldCents:    minHoldCents,
		MaxHoldCents:    maxHoldCents,
		ApproachingLead: approachingLead,
	}
}

// FromConfig builds the rule table from injected configuration.
func FromConfig(cfg config.SLAConfig, approachingLead time.Duration) *RuleTable {
	policies := map[domain.CasePriority]Policy{
		domain.CasePriorityUrgent:    policyFromTier(cfg.Urgent),
		domain.CasePriorityImportant: policyFromTier(cfg.Important),
		domain.CasePriorityAesthetic: policyFromTier(cfg.Aesthetic),
	}
	return NewRuleTable(policies, cfg.HoldPercent, cfg.MinHoldCents, cfg.MaxHoldCents, approachingLead)
}

func policyFromTier(tier config.TierConfig) Policy {
	return Policy{
		ResponseTimeMinutes:         tier.ResponseTimeMinutes,
		ResolutionTimeHours:         tier.ResolutionTimeHours,
		InternalInterventionMinutes: tier.InternalInterventionMinutes,
	}
}

// Lookup returns the policy for a tier. The enumeration is closed; unknown
// tiers fall back to the important budget.
func (t *RuleTable) Lookup(priority domain.CasePriority) Policy {
	if p, ok := t.policies[priority]; ok {
		return p
	}
	return t.policies[domain.CasePriorityImportant]
}

// Snapshot freezes the values a new case must carry for its whole life.
func (t *RuleTable) Snapshot(priority domain.CasePriority) domain.SLASnapshot {
	p := t.Lookup(priority)
	return domain.SLASnapshot{
		ResponseTimeMinutes:         p.ResponseTimeMinutes,
		ResolutionTimeHours:         p.ResolutionTimeHours,
		InternalInterventionMinutes: p.InternalInterventionMinutes,
		HoldPercent:                 t.HoldPercent,
	}
}

// HoldAmountCents computes the withholding for an invoice total, clamped to
// the configured bounds. Integer cents throughout: a $250.00 invoice at 25%
// yields $62.50 exactly.
func (t *RuleTable) HoldAmountCents(invoiceCents int64) int64 {
	amount := invoiceCents * int64(t.HoldPercent) / 100
	if amount < t.MinHoldCents {
		amount = t.MinHoldCents
	}
	if amount > t.MaxHoldCents {
		amount = t.MaxHoldCents
	}
	return amount
}

// Deadlines computes both SLA deadlines from a report timestamp and a frozen
// snapshot. Exact arithmetic: deadline - reportedAt equals the budget.
func Deadlines(reportedAt time.Time, snap domain.SLASnapshot) (response, resolution time.Time) {
	response = reportedAt.Add(time.Duration(snap.ResponseTimeMinutes) * time.Minute)
	resolution = reportedAt.Add(time.Duration(snap.ResolutionTimeHours) * time.Hour)
	return response, resolution
}

// InterventionAt computes when internal staff step in absent a response.
func InterventionAt(reportedAt time.Time, snap domain.SLASnapshot) time.Time {
	return reportedAt.Add(time.Duration(snap.InternalInterventionMinutes) * time.Minute)
}
