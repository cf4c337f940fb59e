package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/events"
	"github.com/spec-kit/aftersales-service/internal/observability"
	"github.com/spec-kit/aftersales-service/internal/repository"
	"github.com/spec-kit/aftersales-service/internal/sla"
)

// EscalationService is the deadline engine. A single periodic sweep walks every
// open case and compares its frozen deadlines against the clock; there are no
// per-case timers, so restarts lose nothing and missed windows are picked up by
// the next pass.
type EscalationService struct {
	cases      repository.CaseRepository
	alerts     repository.AlertRepository
	accounts   repository.AccountRepository
	rules      *sla.RuleTable
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// EscalationDependencies bundles requirements for the deadline engine.
type EscalationDependencies struct {
	CaseRepo    repository.CaseRepository
	AlertRepo   repository.AlertRepository
	AccountRepo repository.AccountRepository
	Rules       *sla.RuleTable
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Clock       func() time.Time
}

// NewEscalationService constructs the deadline engine.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationService{
		cases:      deps.CaseRepo,
		alerts:     deps.AlertRepo,
		accounts:   deps.AccountRepo,
		rules:      deps.Rules,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        clock,
	}
}

// Sweep examines every open case once. Per-case failures are logged and the
// sweep continues; a lost CAS race means another writer acted first, which is
// the outcome the sweep wanted anyway.
func (s *EscalationService) Sweep(ctx context.Context) error {
	open, err := s.cases.ListOpenForSweep(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	escalated := 0
	for i := range open {
		c := &open[i]
		didEscalate, sweepErr := s.sweepCase(ctx, c, now)
		if sweepErr != nil {
			s.logger.Warn("sweep failed for case",
				zap.String("case_id", c.ID),
				zap.Error(sweepErr))
			continue
		}
		if didEscalate {
			escalated++
		}
		if ctx.Err() != nil {
			break
		}
	}

	s.metrics.RecordSweep(escalated)
	s.logger.Debug("sweep complete",
		zap.Int("open_cases", len(open)),
		zap.Int("escalated", escalated))
	return ctx.Err()
}

func (s *EscalationService) sweepCase(ctx context.Context, c *domain.AfterSalesCase, now time.Time) (bool, error) {
	if c.ResponsePending() {
		// Approaching warning, one per case, inside the lead window.
		lead := c.ProviderResponseDeadline.Add(-s.rules.ApproachingLead)
		if !now.Before(lead) && now.Before(c.ProviderResponseDeadline) {
			if err := s.raiseAlert(ctx, c, domain.AlertDeadlineApproaching,
				fmt.Sprintf("provider response for %s due at %s", c.CaseKey, c.ProviderResponseDeadline.Format(time.RFC3339))); err != nil {
				return false, err
			}
		}

		// Missed response deadline: alert once and escalate the case.
		if !now.Before(c.ProviderResponseDeadline) {
			if err := s.raiseAlert(ctx, c, domain.AlertDeadlineMissed,
				fmt.Sprintf("provider never responded to %s before the deadline", c.CaseKey)); err != nil {
				return false, err
			}
			return s.escalate(ctx, c, now)
		}
	}

	// Intervention window: staff step in if the case is still unresponded
	// after the tier's intervention budget. Urgent tiers get the hard alarm.
	if c.ResponsePending() && !c.InternalTakeover {
		interventionAt := sla.InterventionAt(c.ReportedAt, c.SLA)
		if !now.Before(interventionAt) {
			alertType := domain.AlertEscalationRequired
			if c.Priority == domain.CasePriorityUrgent {
				alertType = domain.AlertUrgentNoResponse
			}
			if err := s.raiseAlert(ctx, c, alertType,
				fmt.Sprintf("internal intervention window open for %s", c.CaseKey)); err != nil {
				return false, err
			}
			if err := s.flagTakeover(ctx, c); err != nil {
				return false, err
			}
		}
	}

	// Resolution overrun on an in-flight case.
	if c.Status == domain.CaseStatusInProgress || c.Status == domain.CaseStatusAcknowledged {
		if !now.Before(c.ResolutionDeadline) && c.ResolvedAt == nil {
			if err := s.raiseAlert(ctx, c, domain.AlertEscalationRequired,
				fmt.Sprintf("resolution deadline passed for %s", c.CaseKey)); err != nil {
				return false, err
			}
		}
	}

	return false, nil
}

// escalate moves an unresponded case to escalated with CAS semantics. Losing
// the race means the provider responded between the read and the write; the
// sweep yields.
func (s *EscalationService) escalate(ctx context.Context, c *domain.AfterSalesCase, now time.Time) (bool, error) {
	if c.Status == domain.CaseStatusEscalated {
		return false, nil
	}

	oldStatus := c.Status
	c.Status = domain.CaseStatusEscalated
	c.EscalatedAt = &now
	if err := s.cases.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			s.logger.Debug("escalation lost version race", zap.String("case_id", c.ID))
			return false, nil
		}
		return false, err
	}

	s.publish(ctx, events.Event{
		Type:   events.EventCaseEscalated,
		CaseID: c.ID,
		Actor:  events.Actor{System: true},
		Payload: events.CaseStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: domain.CaseStatusEscalated,
		},
	})
	return true, nil
}

// flagTakeover marks a still-unanswered case for staff takeover once the
// intervention window passes. Losing the CAS race means another writer moved
// the case first; the next sweep re-checks.
func (s *EscalationService) flagTakeover(ctx context.Context, c *domain.AfterSalesCase) error {
	c.InternalTakeover = true
	if err := s.cases.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			s.logger.Debug("takeover flag lost version race", zap.String("case_id", c.ID))
			return nil
		}
		return err
	}

	s.publish(ctx, events.Event{
		Type:   events.EventInternalTakeover,
		CaseID: c.ID,
		Actor:  events.Actor{System: true},
		Payload: events.InternalTakeoverPayload{
			Reason: "intervention window passed with no provider response",
		},
	})
	return nil
}

// raiseAlert inserts the (case, type) alert if it has not fired before. The
// uniqueness lives in the database, so concurrent sweeps cannot double-fire.
func (s *EscalationService) raiseAlert(ctx context.Context, c *domain.AfterSalesCase, alertType domain.AlertType, message string) error {
	exists, err := s.alerts.ExistsForCase(ctx, c.ID, alertType)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	recipients, err := s.adminRecipients(ctx)
	if err != nil {
		return err
	}
	alert := &domain.AfterSalesAlert{
		CaseID:       c.ID,
		Type:         alertType,
		Message:      message,
		RecipientIDs: recipients,
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		return err
	}

	s.metrics.RecordAlert(string(alertType))
	s.logger.Info("alert raised",
		zap.String("case_id", c.ID),
		zap.String("alert_type", string(alertType)))
	return nil
}

func (s *EscalationService) adminRecipients(ctx context.Context) ([]string, error) {
	admins, err := s.accounts.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(admins))
	for _, a := range admins {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// ListAlerts returns unacknowledged alerts for the internal dashboard.
func (s *EscalationService) ListAlerts(ctx context.Context, limit, offset int) ([]domain.AfterSalesAlert, error) {
	return s.alerts.ListUnacknowledged(ctx, limit, offset)
}

// AcknowledgeAlert marks an alert handled by a staff member.
func (s *EscalationService) AcknowledgeAlert(ctx context.Context, alertID, staffID string) error {
	return s.alerts.Acknowledge(ctx, alertID, staffID, s.now())
}

func (s *EscalationService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
