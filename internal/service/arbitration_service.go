package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/events"
	"github.com/spec-kit/aftersales-service/internal/repository"
	"github.com/spec-kit/aftersales-service/internal/tasks"
	apperrors "github.com/spec-kit/aftersales-service/pkg/util"
)

// ArbitrationService runs the admin decision workflow for disputed cases. The
// decision and its ledger effects are two steps on purpose: a gateway outage
// must not lose the verdict, only delay the money.
type ArbitrationService struct {
	arbitrations repository.ArbitrationRepository
	cases        repository.CaseRepository
	invoices     repository.InvoiceRepository
	ledger       *LedgerService
	enqueuer     *tasks.Enqueuer
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	now          func() time.Time
}

// ArbitrationDependencies bundles requirements for the arbitration service.
type ArbitrationDependencies struct {
	ArbitrationRepo repository.ArbitrationRepository
	CaseRepo        repository.CaseRepository
	InvoiceRepo     repository.InvoiceRepository
	Ledger          *LedgerService
	Enqueuer        *tasks.Enqueuer
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	Clock           func() time.Time
}

// DecisionInput is the admin's verdict for one disputed case.
type DecisionInput struct {
	Decision    domain.ArbitrationDecision
	Action      domain.ArbitrationAction
	Explanation string
	RefundCents *int64
}

// NewArbitrationService constructs the service.
func NewArbitrationService(deps ArbitrationDependencies) *ArbitrationService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArbitrationService{
		arbitrations: deps.ArbitrationRepo,
		cases:        deps.CaseRepo,
		invoices:     deps.InvoiceRepo,
		ledger:       deps.Ledger,
		enqueuer:     deps.Enqueuer,
		dispatcher:   deps.Dispatcher,
		logger:       logger,
		now:          clock,
	}
}

// validPairings restricts which remedy each verdict may carry.
var validPairings = map[domain.ArbitrationDecision][]domain.ArbitrationAction{
	domain.DecisionFavorClient:  {domain.ActionFullRefund, domain.ActionNewJob, domain.ActionInsurance},
	domain.DecisionFavorPlumber: {domain.ActionDismiss},
	domain.DecisionPartial:      {domain.ActionPartialRefund},
}

// Decide records the admin verdict. The arbitration must still be awaiting a
// decision and a partial refund must fit inside the invoice total.
func (s *ArbitrationService) Decide(ctx context.Context, staffID, arbitrationID string, input DecisionInput) (*domain.Arbitration, error) {
	if strings.TrimSpace(input.Explanation) == "" {
		return nil, apperrors.NewMissingRequiredField("explanation")
	}
	if !pairingAllowed(input.Decision, input.Action) {
		return nil, apperrors.NewValidationError("decision and action do not pair", map[string]any{
			"decision": input.Decision,
			"action":   input.Action,
		})
	}

	arb, err := s.getArbitration(ctx, arbitrationID)
	if err != nil {
		return nil, err
	}
	if arb.Status != domain.ArbitrationAwaitingDecision {
		return nil, apperrors.NewConflict("arbitration already decided", map[string]any{
			"arbitration_id": arb.ID,
			"status":         arb.Status,
		})
	}

	c, err := s.cases.GetByID(ctx, arb.CaseID)
	if err != nil {
		return nil, err
	}

	if input.Action == domain.ActionPartialRefund {
		if input.RefundCents == nil {
			return nil, apperrors.NewMissingRequiredField("refund_cents")
		}
		invoice, invErr := s.invoices.GetInvoice(ctx, c.InvoiceID)
		if invErr != nil {
			return nil, invErr
		}
		if *input.RefundCents < 0 || *input.RefundCents > invoice.AmountCents {
			return nil, apperrors.NewAmountOutOfBounds("refund must be within the invoice total", map[string]any{
				"refund_cents":  *input.RefundCents,
				"invoice_cents": invoice.AmountCents,
			})
		}
	}

	now := s.now()
	arb.Status = domain.ArbitrationDecided
	arb.Decision = input.Decision
	arb.Action = input.Action
	arb.Explanation = strings.TrimSpace(input.Explanation)
	arb.RefundCents = input.RefundCents
	arb.DecidedByStaffID = &staffID
	arb.DecidedAt = &now
	if err := s.arbitrations.Update(ctx, arb); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:   events.EventArbitrationDecided,
		CaseID: arb.CaseID,
		Actor:  staffActor(staffID),
		Payload: events.ArbitrationPayload{
			ArbitrationID: arb.ID,
			Decision:      arb.Decision,
			Action:        arb.Action,
			RefundCents:   arb.RefundCents,
			Explanation:   arb.Explanation,
		},
	})
	return arb, nil
}

// Apply executes the ledger effects of a decided arbitration and closes the
// case. Safe to call again: an already-applied arbitration is a no-op and a
// failed application leaves the record in decided for the retry queue.
func (s *ArbitrationService) Apply(ctx context.Context, arbitrationID string) (*domain.Arbitration, error) {
	return s.apply(ctx, arbitrationID, true)
}

// RetryApply is the task-queue entry point. It relies on asynq's backoff for
// further attempts instead of enqueueing fresh tasks on every failure.
func (s *ArbitrationService) RetryApply(ctx context.Context, arbitrationID string) error {
	_, err := s.apply(ctx, arbitrationID, false)
	return err
}

func (s *ArbitrationService) apply(ctx context.Context, arbitrationID string, enqueueOnFailure bool) (*domain.Arbitration, error) {
	arb, err := s.getArbitration(ctx, arbitrationID)
	if err != nil {
		return nil, err
	}
	switch arb.Status {
	case domain.ArbitrationApplied:
		return arb, nil
	case domain.ArbitrationDecided:
	default:
		return nil, apperrors.NewConflict("arbitration has no decision to apply", map[string]any{
			"arbitration_id": arb.ID,
			"status":         arb.Status,
		})
	}

	c, err := s.cases.GetByID(ctx, arb.CaseID)
	if err != nil {
		return nil, err
	}

	if err := s.applyLedgerEffects(ctx, arb, c); err != nil {
		s.logger.Warn("arbitration ledger application failed",
			zap.String("arbitration_id", arb.ID),
			zap.String("case_id", arb.CaseID),
			zap.Error(err))
		if enqueueOnFailure {
			s.enqueuer.EnqueueArbitrationRetry(tasks.ArbitrationRetryPayload{
				ArbitrationID: arb.ID,
				CaseID:        arb.CaseID,
			})
		}
		return nil, err
	}

	now := s.now()
	arb.Status = domain.ArbitrationApplied
	arb.AppliedAt = &now
	if err := s.arbitrations.Update(ctx, arb); err != nil {
		return nil, err
	}

	if err := s.closeCase(ctx, c, now); err != nil {
		s.logger.Warn("close after arbitration failed",
			zap.String("case_id", c.ID), zap.Error(err))
	}

	s.publish(ctx, events.Event{
		Type:   events.EventArbitrationApplied,
		CaseID: arb.CaseID,
		Actor:  events.Actor{Role: domain.RoleAdmin, System: true},
		Payload: events.ArbitrationPayload{
			ArbitrationID: arb.ID,
			Decision:      arb.Decision,
			Action:        arb.Action,
			RefundCents:   arb.RefundCents,
			Explanation:   arb.Explanation,
		},
	})
	return arb, nil
}

// applyLedgerEffects maps the verdict onto hold and credit-note operations.
// Every branch is idempotent so the retry queue can replay it safely.
func (s *ArbitrationService) applyLedgerEffects(ctx context.Context, arb *domain.Arbitration, c *domain.AfterSalesCase) error {
	reason := "arbitration:" + arb.ID
	hold, err := s.activeOrLatestHold(ctx, c.ID)
	if err != nil {
		return err
	}

	switch arb.Action {
	case domain.ActionDismiss:
		// Provider vindicated: the withheld funds go back untouched.
		return s.releaseIfActive(ctx, hold)

	case domain.ActionFullRefund:
		invoice, invErr := s.invoices.GetInvoice(ctx, c.InvoiceID)
		if invErr != nil {
			return invErr
		}
		if err := s.issueNoteOnce(ctx, c, hold, invoice.AmountCents, reason); err != nil {
			return err
		}
		// The hold status is the money-movement marker: forfeiting is the last
		// step, so a replay that finds the hold off active skips the refund.
		if hold == nil || hold.Status != domain.HoldStatusActive {
			return nil
		}
		if err := s.ledger.RefundClient(ctx, hold, invoice.AmountCents, reason); err != nil {
			return err
		}
		return s.ledger.ForfeitHold(ctx, hold.ID)

	case domain.ActionPartialRefund:
		refund := int64(0)
		if arb.RefundCents != nil {
			refund = *arb.RefundCents
		}
		if err := s.issueNoteOnce(ctx, c, hold, refund, reason); err != nil {
			return err
		}
		// A hold that already left active means a prior attempt finished the
		// money movement; only the credit note above could have been missing.
		if hold == nil || hold.Status != domain.HoldStatusActive {
			return nil
		}
		if err := s.ledger.RefundClient(ctx, hold, refund, reason); err != nil {
			return err
		}
		// The remainder of the hold still belongs to the provider.
		remainder := hold.AmountCents - refund
		if remainder < 0 {
			remainder = 0
		}
		return s.ledger.ReleaseHoldPortion(ctx, hold.ID, remainder)

	case domain.ActionNewJob, domain.ActionInsurance:
		// Remediation in kind: forfeit the hold and carry its value as a
		// credit note against the follow-up work. No cash moves here.
		if hold != nil {
			if err := s.ledger.ForfeitHold(ctx, hold.ID); err != nil {
				return err
			}
			return s.issueNoteOnce(ctx, c, hold, hold.AmountCents, reason)
		}
		return s.issueNoteOnce(ctx, c, nil, c.HoldAmountCents, reason)

	default:
		return apperrors.NewValidationError("unknown arbitration action", map[string]any{"action": arb.Action})
	}
}

// issueNoteOnce writes the arbitration credit note unless a prior attempt
// already recorded it under the same reason.
func (s *ArbitrationService) issueNoteOnce(ctx context.Context, c *domain.AfterSalesCase, hold *domain.PaymentHold, amountCents int64, reason string) error {
	if amountCents <= 0 {
		return nil
	}
	existing, err := s.ledger.FindCreditNoteByReason(ctx, c.ID, reason)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	var holdID *string
	if hold != nil {
		id := hold.ID
		holdID = &id
	}
	_, err = s.ledger.IssueCreditNote(ctx, c.ID, holdID, c.ProviderID, amountCents, reason)
	return err
}

func (s *ArbitrationService) releaseIfActive(ctx context.Context, hold *domain.PaymentHold) error {
	if hold == nil || hold.Status != domain.HoldStatusActive {
		return nil
	}
	_, err := s.ledger.ReleaseHold(ctx, hold.ID)
	if err != nil && apperrors.IsCode(err, "ALREADY_RELEASED") {
		return nil
	}
	return err
}

func (s *ArbitrationService) closeCase(ctx context.Context, c *domain.AfterSalesCase, now time.Time) error {
	for attempt := 0; attempt < 2; attempt++ {
		if c.Status == domain.CaseStatusClosed {
			return nil
		}
		if c.ResolvedAt == nil {
			c.ResolvedAt = &now
		}
		c.Status = domain.CaseStatusClosed
		err := s.cases.Update(ctx, c)
		if err == nil {
			s.publish(ctx, events.Event{
				Type:   events.EventCaseClosed,
				CaseID: c.ID,
				Actor:  events.Actor{Role: domain.RoleAdmin, System: true},
				Payload: events.CaseStatusChangedPayload{
					OldStatus: domain.CaseStatusEscalated,
					NewStatus: domain.CaseStatusClosed,
				},
			})
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		fresh, readErr := s.cases.GetByID(ctx, c.ID)
		if readErr != nil {
			return readErr
		}
		c = fresh
	}
	return repository.ErrVersionConflict
}

// GetForCase returns the arbitration attached to a case, if any.
func (s *ArbitrationService) GetForCase(ctx context.Context, caseID string) (*domain.Arbitration, error) {
	arb, err := s.arbitrations.GetByCase(ctx, caseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("arbitration", map[string]any{"case_id": caseID})
		}
		return nil, err
	}
	return arb, nil
}

func (s *ArbitrationService) getArbitration(ctx context.Context, id string) (*domain.Arbitration, error) {
	arb, err := s.arbitrations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("arbitration", map[string]any{"arbitration_id": id})
		}
		return nil, err
	}
	return arb, nil
}

// activeOrLatestHold prefers the active hold but falls back to the most recent
// one so replays after a forfeit still see the amounts they need.
func (s *ArbitrationService) activeOrLatestHold(ctx context.Context, caseID string) (*domain.PaymentHold, error) {
	hold, err := s.ledger.ActiveHoldForCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if hold != nil {
		return hold, nil
	}
	holds, err := s.ledger.HoldsForCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if len(holds) == 0 {
		return nil, nil
	}
	return &holds[len(holds)-1], nil
}

func pairingAllowed(decision domain.ArbitrationDecision, action domain.ArbitrationAction) bool {
	for _, candidate := range validPairings[decision] {
		if candidate == action {
			return true
		}
	}
	return false
}

func (s *ArbitrationService) publish(ctx context.Context, event events.Event) {
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
