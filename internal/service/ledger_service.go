package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/events"
	"github.com/spec-kit/aftersales-service/internal/payment"
	"github.com/spec-kit/aftersales-service/internal/repository"
	"github.com/spec-kit/aftersales-service/internal/sla"
	"github.com/spec-kit/aftersales-service/internal/tasks"
	apperrors "github.com/spec-kit/aftersales-service/pkg/util"
)

// LedgerService owns payment holds and credit notes. Gateway calls are bounded
// by a per-call timeout; a slow or failing processor surfaces an error to the
// caller but can never wedge the service.
type LedgerService struct {
	holds       repository.HoldRepository
	creditNotes repository.CreditNoteRepository
	accounts    repository.AccountRepository
	gateway     payment.Gateway
	rules       *sla.RuleTable
	dispatcher  events.Dispatcher
	enqueuer    *tasks.Enqueuer
	logger      *zap.Logger
	currency    string
	callTimeout time.Duration
	now         func() time.Time
}

// LedgerDependencies bundles requirements for the ledger service.
type LedgerDependencies struct {
	HoldRepo       repository.HoldRepository
	CreditNoteRepo repository.CreditNoteRepository
	AccountRepo    repository.AccountRepository
	Gateway        payment.Gateway
	Rules          *sla.RuleTable
	Dispatcher     events.Dispatcher
	Enqueuer       *tasks.Enqueuer
	Logger         *zap.Logger
	Currency       string
	CallTimeout    time.Duration
	Clock          func() time.Time
}

// NewLedgerService constructs the service.
func NewLedgerService(deps LedgerDependencies) *LedgerService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	currency := deps.Currency
	if currency == "" {
		currency = "cad"
	}
	return &LedgerService{
		holds:       deps.HoldRepo,
		creditNotes: deps.CreditNoteRepo,
		accounts:    deps.AccountRepo,
		gateway:     deps.Gateway,
		rules:       deps.Rules,
		dispatcher:  deps.Dispatcher,
		enqueuer:    deps.Enqueuer,
		logger:      logger,
		currency:    currency,
		callTimeout: deps.CallTimeout,
		now:         clock,
	}
}

// ApplyHold withholds the configured percentage of the invoice total against a
// provider, clamped to the global bounds. The amount is computed exactly once
// here; at most one active hold exists per claim cycle.
func (s *LedgerService) ApplyHold(ctx context.Context, caseID, providerID string, invoiceAmountCents int64, reason string) (*domain.PaymentHold, error) {
	if invoiceAmountCents <= 0 {
		return nil, apperrors.NewAmountOutOfBounds("invoice amount must be positive", map[string]any{
			"invoice_amount_cents": invoiceAmountCents,
		})
	}
	if existing, err := s.holds.GetActiveByCase(ctx, caseID); err == nil && existing != nil {
		return nil, apperrors.NewConflict("case already has an active hold", map[string]any{
			"hold_id": existing.ID,
		})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	amount := s.rules.HoldAmountCents(invoiceAmountCents)

	hold := &domain.PaymentHold{
		CaseID:      caseID,
		ProviderID:  providerID,
		AmountCents: amount,
		Reason:      reason,
		Status:      domain.HoldStatusActive,
		AppliedAt:   s.now(),
	}

	gwCtx, cancel := payment.CallTimeout(ctx, s.callTimeout)
	ref, err := s.gateway.Authorize(gwCtx, providerID, amount, s.currency, "hold:"+caseID)
	cancel()
	if err != nil {
		return nil, apperrors.NewDomainError("GATEWAY_ERROR", "payment gateway authorize failed", 502, nil)
	}
	hold.GatewayRef = &ref

	if err := s.holds.Create(ctx, hold); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:   events.EventHoldApplied,
		CaseID: caseID,
		Actor:  events.Actor{Role: domain.RoleAdmin, System: true},
		Payload: events.HoldPayload{
			HoldID:      hold.ID,
			ProviderID:  providerID,
			AmountCents: amount,
			Status:      hold.Status,
		},
	})
	return hold, nil
}

// ReleaseHold returns withheld funds to the provider. Exactly once: a second
// release attempt fails with ALREADY_RELEASED.
func (s *LedgerService) ReleaseHold(ctx context.Context, holdID string) (time.Time, error) {
	hold, err := s.holds.GetByID(ctx, holdID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, apperrors.NewNotFound("payment hold", map[string]any{"hold_id": holdID})
		}
		return time.Time{}, err
	}
	if hold.Status != domain.HoldStatusActive {
		return time.Time{}, apperrors.NewAlreadyReleased(holdID)
	}

	releasedAt := s.now()
	// Flip the row first: the status guard in the repository makes release
	// one-shot even under racing callers.
	if err := s.holds.MarkReleased(ctx, holdID, releasedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, apperrors.NewAlreadyReleased(holdID)
		}
		return time.Time{}, err
	}

	if err := s.transferToProvider(ctx, hold.ProviderID, hold.AmountCents, "release:"+hold.CaseID); err != nil {
		// The hold is released in our ledger; payout retries out of band.
		s.logger.Warn("hold release transfer failed",
			zap.String("hold_id", holdID),
			zap.Error(err))
		s.enqueuer.EnqueueTransferRetry(tasks.TransferRetryPayload{
			HoldID:      hold.ID,
			CaseID:      hold.CaseID,
			ProviderID:  hold.ProviderID,
			AmountCents: hold.AmountCents,
			Reference:   "release:" + hold.CaseID,
		})
	}

	s.publish(ctx, events.Event{
		Type:   events.EventHoldReleased,
		CaseID: hold.CaseID,
		Actor:  events.Actor{Role: domain.RoleAdmin, System: true},
		Payload: events.HoldPayload{
			HoldID:      hold.ID,
			ProviderID:  hold.ProviderID,
			AmountCents: hold.AmountCents,
			Status:      domain.HoldStatusReleased,
		},
	})
	return releasedAt, nil
}

// ReleaseHoldPortion pays out part of a hold to the provider and consumes the
// rest, the split outcome of a partial arbitration.
func (s *LedgerService) ReleaseHoldPortion(ctx context.Context, holdID string, providerPortionCents int64) error {
	hold, err := s.holds.GetByID(ctx, holdID)
	if err != nil {
		return err
	}
	if hold.Status != domain.HoldStatusActive {
		return apperrors.NewAlreadyReleased(holdID)
	}
	if providerPortionCents < 0 || providerPortionCents > hold.AmountCents {
		return apperrors.NewAmountOutOfBounds("portion exceeds hold amount", map[string]any{
			"portion_cents": providerPortionCents,
			"hold_cents":    hold.AmountCents,
		})
	}

	if err := s.holds.MarkReleased(ctx, holdID, s.now()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewAlreadyReleased(holdID)
		}
		return err
	}
	if providerPortionCents > 0 {
		if err := s.transferToProvider(ctx, hold.ProviderID, providerPortionCents, "split:"+hold.CaseID); err != nil {
			s.logger.Warn("split release transfer failed", zap.String("hold_id", holdID), zap.Error(err))
			s.enqueuer.EnqueueTransferRetry(tasks.TransferRetryPayload{
				HoldID:      hold.ID,
				CaseID:      hold.CaseID,
				ProviderID:  hold.ProviderID,
				AmountCents: providerPortionCents,
				Reference:   "split:" + hold.CaseID,
			})
		}
	}
	return nil
}

// RetryTransfer re-runs a provider payout whose gateway call failed after the
// hold row was flipped. The returned error drives the queue's backoff.
func (s *LedgerService) RetryTransfer(ctx context.Context, providerID string, amountCents int64, reference string) error {
	return s.transferToProvider(ctx, providerID, amountCents, reference)
}

// ForfeitHold consumes an active hold for a client-favoring outcome; no funds
// return to the provider. Idempotent: forfeiting a forfeited hold is a no-op.
func (s *LedgerService) ForfeitHold(ctx context.Context, holdID string) error {
	hold, err := s.holds.GetByID(ctx, holdID)
	if err != nil {
		return err
	}
	switch hold.Status {
	case domain.HoldStatusForfeited:
		return nil
	case domain.HoldStatusReleased:
		return apperrors.NewAlreadyReleased(holdID)
	}
	if err := s.holds.MarkForfeited(ctx, holdID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost a race; re-read to distinguish forfeited from released.
			current, readErr := s.holds.GetByID(ctx, holdID)
			if readErr == nil && current.Status == domain.HoldStatusForfeited {
				return nil
			}
			return apperrors.NewAlreadyReleased(holdID)
		}
		return err
	}
	return nil
}

// IssueCreditNote records a permanent deduction against a provider. Append-only.
func (s *LedgerService) IssueCreditNote(ctx context.Context, caseID string, holdID *string, providerID string, amountCents int64, reason string) (*domain.CreditNote, error) {
	if amountCents <= 0 {
		return nil, apperrors.NewAmountOutOfBounds("credit note amount must be positive", map[string]any{
			"amount_cents": amountCents,
		})
	}
	if reason == "" {
		return nil, apperrors.NewMissingRequiredField("reason")
	}

	note := &domain.CreditNote{
		CaseID:      caseID,
		HoldID:      holdID,
		ProviderID:  providerID,
		AmountCents: amountCents,
		Reason:      reason,
	}
	if err := s.creditNotes.Create(ctx, note); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:   events.EventCreditNoteIssued,
		CaseID: caseID,
		Actor:  events.Actor{Role: domain.RoleAdmin, System: true},
		Payload: events.CreditNotePayload{
			CreditNoteID: note.ID,
			ProviderID:   providerID,
			AmountCents:  amountCents,
			Reason:       reason,
		},
	})
	return note, nil
}

// FindCreditNoteByReason returns the case's credit note carrying the reason,
// which lets retried arbitration applications stay idempotent.
func (s *LedgerService) FindCreditNoteByReason(ctx context.Context, caseID, reason string) (*domain.CreditNote, error) {
	notes, err := s.creditNotes.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	for i := range notes {
		if notes[i].Reason == reason {
			return &notes[i], nil
		}
	}
	return nil, nil
}

// RefundClient pushes funds back to the payer through the gateway.
func (s *LedgerService) RefundClient(ctx context.Context, hold *domain.PaymentHold, amountCents int64, reason string) error {
	if hold == nil || hold.GatewayRef == nil {
		s.logger.Warn("refund skipped: no gateway reference", zap.Int64("amount_cents", amountCents))
		return nil
	}
	gwCtx, cancel := payment.CallTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.gateway.Refund(gwCtx, *hold.GatewayRef, amountCents, reason)
}

// ApplyCreditNoteToInvoice records that a future invoice absorbed (part of) a
// credit note.
func (s *LedgerService) ApplyCreditNoteToInvoice(ctx context.Context, creditNoteID, invoiceID string, amountCents int64) (*domain.CreditNoteApplication, error) {
	note, err := s.creditNotes.GetByID(ctx, creditNoteID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("credit note", map[string]any{"credit_note_id": creditNoteID})
		}
		return nil, err
	}
	if amountCents <= 0 {
		return nil, apperrors.NewAmountOutOfBounds("application amount must be positive", nil)
	}

	applied, err := s.creditNotes.ListApplications(ctx, creditNoteID)
	if err != nil {
		return nil, err
	}
	var alreadyApplied int64
	for _, app := range applied {
		alreadyApplied += app.AmountCents
	}
	if alreadyApplied+amountCents > note.AmountCents {
		return nil, apperrors.NewAmountOutOfBounds("application exceeds remaining credit note balance", map[string]any{
			"remaining_cents": note.AmountCents - alreadyApplied,
		})
	}

	app := &domain.CreditNoteApplication{
		CreditNoteID: creditNoteID,
		InvoiceID:    invoiceID,
		AmountCents:  amountCents,
	}
	if err := s.creditNotes.RecordApplication(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// HoldsForCase lists every hold recorded against a case.
func (s *LedgerService) HoldsForCase(ctx context.Context, caseID string) ([]domain.PaymentHold, error) {
	return s.holds.ListByCase(ctx, caseID)
}

// ActiveHoldForCase returns the case's active hold, or nil when none exists.
func (s *LedgerService) ActiveHoldForCase(ctx context.Context, caseID string) (*domain.PaymentHold, error) {
	hold, err := s.holds.GetActiveByCase(ctx, caseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return hold, nil
}

// CreditNotesForCase lists credit notes issued against a case.
func (s *LedgerService) CreditNotesForCase(ctx context.Context, caseID string) ([]domain.CreditNote, error) {
	return s.creditNotes.ListByCase(ctx, caseID)
}

func (s *LedgerService) transferToProvider(ctx context.Context, providerID string, amountCents int64, reference string) error {
	destination := providerID
	if account, err := s.accounts.GetByID(ctx, providerID); err == nil && account.GatewayAccountID != nil {
		destination = *account.GatewayAccountID
	}
	gwCtx, cancel := payment.CallTimeout(ctx, s.callTimeout)
	defer cancel()
	_, err := s.gateway.Transfer(gwCtx, destination, amountCents, s.currency, reference)
	return err
}

func (s *LedgerService) publish(ctx context.Context, event events.Event) {
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
