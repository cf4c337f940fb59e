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
	"github.com/spec-kit/aftersales-service/internal/sla"
	"github.com/spec-kit/aftersales-service/internal/tasks"
	apperrors "github.com/spec-kit/aftersales-service/pkg/util"
)

// CaseService coordinates claim workflows.
type CaseService struct {
	cases        repository.CaseRepository
	notes        repository.NoteRepository
	invoices     repository.InvoiceRepository
	arbitrations repository.ArbitrationRepository
	ledger       *LedgerService
	rules        *sla.RuleTable
	dispatcher   events.Dispatcher
	enqueuer     *tasks.Enqueuer
	logger       *zap.Logger
	now          func() time.Time
}

// CaseDependencies bundles requirements for the case service.
type CaseDependencies struct {
	CaseRepo        repository.CaseRepository
	NoteRepo        repository.NoteRepository
	InvoiceRepo     repository.InvoiceRepository
	ArbitrationRepo repository.ArbitrationRepository
	Ledger          *LedgerService
	Rules           *sla.RuleTable
	Dispatcher      events.Dispatcher
	Enqueuer        *tasks.Enqueuer
	Logger          *zap.Logger
	Clock           func() time.Time
}

// CaseCreateInput describes claim creation payload.
type CaseCreateInput struct {
	JobID       string
	Title       string
	Description string
	Priority    domain.CasePriority
	Photos      []string
}

// ProviderResponseInput describes the provider's answer to a new claim.
type ProviderResponseInput struct {
	Action          string // "accept" or "dispute"
	Explanation     string
	AppointmentDate *time.Time
	TimeSlot        *string
}

// DamageInput describes a property-damage sub-report.
type DamageInput struct {
	AmountCents *int64
	Resolution  *domain.DamageResolution
}

// NewCaseService constructs the service.
func NewCaseService(deps CaseDependencies) *CaseService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaseService{
		cases:        deps.CaseRepo,
		notes:        deps.NoteRepo,
		invoices:     deps.InvoiceRepo,
		arbitrations: deps.ArbitrationRepo,
		ledger:       deps.Ledger,
		rules:        deps.Rules,
		dispatcher:   deps.Dispatcher,
		enqueuer:     deps.Enqueuer,
		logger:       logger,
		now:          clock,
	}
}

// ReportCase creates a claim against a completed job. Deadlines and the SLA
// snapshot are computed here, once; later rule edits never reach this case.
func (s *CaseService) ReportCase(ctx context.Context, clientID string, input CaseCreateInput) (*domain.AfterSalesCase, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewMissingRequiredField("title")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewMissingRequiredField("description")
	}
	if !validPriority(input.Priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}

	job, err := s.invoices.GetJob(ctx, input.JobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("job", map[string]any{"job_id": input.JobID})
		}
		return nil, err
	}
	if job.ClientID != clientID {
		return nil, apperrors.NewForbidden("job belongs to another client")
	}
	if job.Status != domain.JobStatusCompleted {
		return nil, apperrors.NewValidationError("claims can only target completed jobs", map[string]any{
			"job_status": job.Status,
		})
	}
	invoice, err := s.invoices.GetInvoiceByJob(ctx, job.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("invoice", map[string]any{"job_id": job.ID})
		}
		return nil, err
	}

	reportedAt := s.now()
	snap := s.rules.Snapshot(input.Priority)
	responseDeadline, resolutionDeadline := sla.Deadlines(reportedAt, snap)

	c := &domain.AfterSalesCase{
		CaseKey:                  generateCaseKey(),
		JobID:                    job.ID,
		ClientID:                 clientID,
		ProviderID:               job.ProviderID,
		InvoiceID:                invoice.ID,
		Title:                    strings.TrimSpace(input.Title),
		Description:              strings.TrimSpace(input.Description),
		Photos:                   input.Photos,
		Priority:                 input.Priority,
		Status:                   domain.CaseStatusReported,
		ReportedAt:               reportedAt,
		SLA:                      snap,
		ProviderResponseDeadline: responseDeadline,
		ResolutionDeadline:       resolutionDeadline,
		HoldAmountCents:          s.rules.HoldAmountCents(invoice.AmountCents),
	}

	if err := s.cases.Create(ctx, c); err != nil {
		return nil, err
	}

	// Hold application is collateral to the claim: a ledger failure is logged
	// and retried out of band, never fatal to the report.
	if hold, err := s.ledger.ApplyHold(ctx, c.ID, c.ProviderID, invoice.AmountCents, "claim:"+c.CaseKey); err != nil {
		s.logger.Warn("hold application failed", zap.String("case_id", c.ID), zap.Error(err))
		s.enqueuer.EnqueueHoldRetry(tasks.HoldRetryPayload{CaseID: c.ID})
	} else {
		c.HoldApplied = true
		c.HoldAmountCents = hold.AmountCents
		if err := s.cases.Update(ctx, c); err != nil {
			s.logger.Warn("hold flag update failed", zap.String("case_id", c.ID), zap.Error(err))
		}
	}

	s.publish(ctx, events.Event{
		Type:   events.EventCaseReported,
		CaseID: c.ID,
		Actor:  clientActor(clientID),
		Payload: events.CaseReportedPayload{
			JobID:            c.JobID,
			ProviderID:       c.ProviderID,
			Priority:         c.Priority,
			Title:            c.Title,
			ResponseDeadline: c.ProviderResponseDeadline,
		},
	})
	return c, nil
}

// RetryHoldApplication re-attempts the withholding that failed when the claim
// was reported. Safe to replay: a hold that already exists just flips the
// case flag, and a closed case no longer needs one.
func (s *CaseService) RetryHoldApplication(ctx context.Context, caseID string) error {
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return err
	}
	if c.HoldApplied || !c.Open() {
		return nil
	}

	invoice, err := s.invoices.GetInvoiceByJob(ctx, c.JobID)
	if err != nil {
		return err
	}

	amount := c.HoldAmountCents
	hold, err := s.ledger.ApplyHold(ctx, c.ID, c.ProviderID, invoice.AmountCents, "claim:"+c.CaseKey)
	switch {
	case err == nil:
		amount = hold.AmountCents
	case apperrors.IsCode(err, "CONFLICT"):
		// An earlier attempt won; only the flag is missing.
	default:
		return err
	}

	c.HoldApplied = true
	c.HoldAmountCents = amount
	if err := s.cases.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return s.RetryHoldApplication(ctx, caseID)
		}
		return err
	}
	return nil
}

// ListClientCases returns claims reported by a client.
func (s *CaseService) ListClientCases(ctx context.Context, clientID string, statuses []domain.CaseStatus, limit, offset int) ([]domain.AfterSalesCase, error) {
	return s.cases.ListWithFilter(ctx, repository.CaseFilter{
		ClientID: &clientID,
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	})
}

// ListProviderCases returns claims raised against a provider.
func (s *CaseService) ListProviderCases(ctx context.Context, providerID string, statuses []domain.CaseStatus, limit, offset int) ([]domain.AfterSalesCase, error) {
	return s.cases.ListWithFilter(ctx, repository.CaseFilter{
		ProviderID: &providerID,
		Statuses:   statuses,
		Limit:      limit,
		Offset:     offset,
	})
}

// ListCases returns claims for admins with arbitrary filters.
func (s *CaseService) ListCases(ctx context.Context, filter repository.CaseFilter) ([]domain.AfterSalesCase, error) {
	return s.cases.ListWithFilter(ctx, filter)
}

// GetCaseFor fetches a case and enforces party access.
func (s *CaseService) GetCaseFor(ctx context.Context, account *domain.Account, caseID string) (*domain.AfterSalesCase, []domain.CaseNote, error) {
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, nil, err
	}
	if !canAccessCase(account, c) {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	notes, err := s.notes.ListByCase(ctx, c.ID)
	if err != nil {
		return nil, nil, err
	}
	return c, notes, nil
}

// ProviderRespond records the provider's accept or dispute. Duplicate accepts
// are idempotent no-ops; a response after escalation is accepted but flagged
// late and does not un-escalate the case.
func (s *CaseService) ProviderRespond(ctx context.Context, providerID, caseID string, input ProviderResponseInput) (*domain.AfterSalesCase, error) {
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.ProviderID != providerID {
		return nil, apperrors.NewForbidden("case belongs to another provider")
	}

	switch input.Action {
	case "accept":
		return s.providerAccept(ctx, c, input)
	case "dispute":
		return s.providerDispute(ctx, c, providerID, input)
	default:
		return nil, apperrors.NewValidationError("action must be accept or dispute", nil)
	}
}

func (s *CaseService) providerAccept(ctx context.Context, c *domain.AfterSalesCase, input ProviderResponseInput) (*domain.AfterSalesCase, error) {
	// Duplicate delivery of the same accept: nothing to re-apply.
	if c.ProviderRespondedAt != nil && c.Status != domain.CaseStatusReported {
		return c, nil
	}

	now := s.now()
	late := false

	switch c.Status {
	case domain.CaseStatusReported:
		c.Status = domain.CaseStatusAcknowledged
	case domain.CaseStatusEscalated:
		// Accepted but flagged late; escalation is terminal for the
		// provider's responsibility, so the status stays put.
		late = true
		c.RespondedLate = true
	default:
		return nil, apperrors.NewInvalidTransition(string(c.Status), string(domain.CaseStatusAcknowledged))
	}

	if c.ProviderRespondedAt == nil {
		c.ProviderRespondedAt = &now
	}
	if input.AppointmentDate != nil {
		c.InterventionScheduled = true
		c.InterventionDate = input.AppointmentDate
		c.InterventionSlot = input.TimeSlot
	}

	if err := s.cases.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			// Re-read and retry once: the sweep may have escalated underneath us.
			fresh, readErr := s.getCase(ctx, c.ID)
			if readErr != nil {
				return nil, readErr
			}
			return s.providerAccept(ctx, fresh, input)
		}
		return nil, err
	}

	eventType := events.EventCaseAcknowledged
	if late {
		eventType = events.EventCaseNoteAdded
	}
	s.publish(ctx, events.Event{
		Type:   eventType,
		CaseID: c.ID,
		Actor:  providerActor(c.ProviderID),
		Payload: events.CaseStatusChangedPayload{
			OldStatus: domain.CaseStatusReported,
			NewStatus: c.Status,
			Late:      late,
		},
	})
	if input.AppointmentDate != nil {
		s.publish(ctx, events.Event{
			Type:   events.EventInterventionPlanned,
			CaseID: c.ID,
			Actor:  providerActor(c.ProviderID),
			Payload: events.InterventionPlannedPayload{
				Date: input.AppointmentDate,
				Slot: input.TimeSlot,
			},
		})
	}
	return c, nil
}

func (s *CaseService) providerDispute(ctx context.Context, c *domain.AfterSalesCase, providerID string, input ProviderResponseInput) (*domain.AfterSalesCase, error) {
	if strings.TrimSpace(input.Explanation) == "" {
		return nil, apperrors.NewMissingRequiredField("explanation")
	}
	if c.Disputed {
		return c, nil
	}
	switch c.Status {
	case domain.CaseStatusReported, domain.CaseStatusAcknowledged, domain.CaseStatusEscalated:
	default:
		return nil, apperrors.NewInvalidTransition(string(c.Status), "disputed")
	}

	now := s.now()
	if c.ProviderRespondedAt == nil {
		c.ProviderRespondedAt = &now
	}
	if c.Status == domain.CaseStatusEscalated {
		c.RespondedLate = true
	} else if c.Status == domain.CaseStatusReported {
		c.Status = domain.CaseStatusAcknowledged
	}
	c.Disputed = true

	if err := s.cases.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			fresh, readErr := s.getCase(ctx, c.ID)
			if readErr != nil {
				return nil, readErr
			}
			return s.providerDispute(ctx, fresh, providerID, input)
		}
		return nil, err
	}

	arb := &domain.Arbitration{CaseID: c.ID, Status: domain.ArbitrationAwaitingDecision}
	if err := s.arbitrations.Create(ctx, arb); err != nil {
		return nil, err
	}

	note := &domain.CaseNote{
		CaseID:     c.ID,
		AuthorID:   providerID,
		AuthorRole: domain.RoleProvider,
		Message:    input.Explanation,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		s.logger.Warn("dispute note create failed", zap.String("case_id", c.ID), zap.Error(err))
	}

	s.publish(ctx, events.Event{
		Type:   events.EventCaseDisputed,
		CaseID: c.ID,
		Actor:  providerActor(providerID),
		Payload: events.CaseDisputedPayload{
			ProviderID:    providerID,
			Explanation:   input.Explanation,
			ArbitrationID: arb.ID,
		},
	})
	return c, nil
}

// StartProgress moves an acknowledged case to in_progress. Escalated cases can
// only be moved forward by internal staff.
func (s *CaseService) StartProgress(ctx context.Context, account *domain.Account, caseID string) (*domain.AfterSalesCase, error) {
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !canActOnCase(account, c) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if c.Status == domain.CaseStatusEscalated && account.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("escalated cases require internal staff")
	}
	return s.transition(ctx, c, domain.CaseStatusInProgress, actorFor(account), "")
}

// ResolveCase marks the remediation work done.
func (s *CaseService) ResolveCase(ctx context.Context, account *domain.Account, caseID, comment string) (*domain.AfterSalesCase, error) {
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !canActOnCase(account, c) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return s.transition(ctx, c, domain.CaseStatusResolved, actorFor(account), comment)
}

// CloseCase finishes a resolved case and releases the hold back to the
// provider. Admins may close escalated cases directly once arbitration or
// takeover settled the outcome.
func (s *CaseService) CloseCase(ctx context.Context, account *domain.Account, caseID string) (*domain.AfterSalesCase, error) {
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	switch account.Role {
	case domain.RoleClient:
		if c.ClientID != account.ID {
			return nil, apperrors.NewForbidden("access denied")
		}
	case domain.RoleAdmin:
	default:
		return nil, apperrors.NewForbidden("only the client or staff can close a case")
	}

	closed, err := s.transition(ctx, c, domain.CaseStatusClosed, actorFor(account), "")
	if err != nil {
		return nil, err
	}

	// The regular close path returns the withheld funds. Arbitrated closes
	// settle the hold before getting here, which makes this a logged no-op.
	if hold, holdErr := s.ledger.ActiveHoldForCase(ctx, closed.ID); holdErr == nil && hold != nil {
		if _, relErr := s.ledger.ReleaseHold(ctx, hold.ID); relErr != nil {
			s.logger.Warn("hold release on close failed", zap.String("case_id", closed.ID), zap.Error(relErr))
		}
	}
	return closed, nil
}

// ScheduleIntervention books the repair visit.
func (s *CaseService) ScheduleIntervention(ctx context.Context, account *domain.Account, caseID string, date time.Time, slot *string) (*domain.AfterSalesCase, error) {
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !canActOnCase(account, c) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if !c.Open() {
		return nil, apperrors.NewInvalidTransition(string(c.Status), "intervention_scheduled")
	}
	if date.Before(s.now()) {
		return nil, apperrors.NewDeadlinePassed("appointment date is already in the past")
	}

	c.InterventionScheduled = true
	c.InterventionDate = &date
	c.InterventionSlot = slot
	if err := s.cases.Update(ctx, c); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:    events.EventInterventionPlanned,
		CaseID:  c.ID,
		Actor:   actorFor(account),
		Payload: events.InterventionPlannedPayload{Date: &date, Slot: slot},
	})
	return c, nil
}

// CompleteIntervention flags the scheduled visit as done.
func (s *CaseService) CompleteIntervention(ctx context.Context, account *domain.Account, caseID string) (*domain.AfterSalesCase, error) {
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !canActOnCase(account, c) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if !c.InterventionScheduled {
		return nil, apperrors.NewValidationError("no intervention scheduled", nil)
	}
	c.InterventionDone = true
	if err := s.cases.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ReportDamage attaches a property-damage sub-record to the claim.
func (s *CaseService) ReportDamage(ctx context.Context, clientID, caseID string, input DamageInput) (*domain.AfterSalesCase, error) {
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.ClientID != clientID {
		return nil, apperrors.NewForbidden("access denied")
	}
	if !c.Open() {
		return nil, apperrors.NewInvalidTransition(string(c.Status), "damage_reported")
	}
	if input.AmountCents != nil && *input.AmountCents <= 0 {
		return nil, apperrors.NewAmountOutOfBounds("damage amount must be positive", nil)
	}

	c.DamageReported = true
	c.DamageAmountCents = input.AmountCents
	c.DamageResolution = input.Resolution
	if err := s.cases.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// AddNote appends a message to the case thread.
func (s *CaseService) AddNote(ctx context.Context, account *domain.Account, caseID, message string, photos []string) (*domain.CaseNote, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.NewMissingRequiredField("message")
	}
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !canAccessCase(account, c) {
		return nil, apperrors.NewForbidden("access denied")
	}

	note := &domain.CaseNote{
		CaseID:     c.ID,
		AuthorID:   account.ID,
		AuthorRole: account.Role,
		Message:    strings.TrimSpace(message),
		Photos:     photos,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:   events.EventCaseNoteAdded,
		CaseID: c.ID,
		Actor:  actorFor(account),
		Payload: events.CaseNoteAddedPayload{
			NoteID:     note.ID,
			AuthorRole: account.Role,
			AuthorID:   account.ID,
			Preview:    stringPreview(note.Message, 120),
		},
	})
	return note, nil
}

// InternalTakeover hands an unresponsive provider's case to staff, optionally
// assigning a replacement provider.
func (s *CaseService) InternalTakeover(ctx context.Context, staffID, caseID string, replacementProviderID *string, reason string) (*domain.AfterSalesCase, error) {
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !c.Open() {
		return nil, apperrors.NewInvalidTransition(string(c.Status), "internal_takeover")
	}

	c.InternalTakeover = true
	c.ReplacementProviderID = replacementProviderID
	if err := s.cases.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			fresh, readErr := s.getCase(ctx, c.ID)
			if readErr != nil {
				return nil, readErr
			}
			return s.InternalTakeover(ctx, staffID, fresh.ID, replacementProviderID, reason)
		}
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:   events.EventInternalTakeover,
		CaseID: c.ID,
		Actor:  staffActor(staffID),
		Payload: events.InternalTakeoverPayload{
			ReplacementProviderID: replacementProviderID,
			Reason:                reason,
		},
	})
	return c, nil
}

// transition applies a validated forward move with CAS semantics.
func (s *CaseService) transition(ctx context.Context, c *domain.AfterSalesCase, next domain.CaseStatus, actor events.Actor, comment string) (*domain.AfterSalesCase, error) {
	if c.Status == next {
		// Duplicate delivery of the same transition.
		return c, nil
	}
	if !isValidTransition(c.Status, next) {
		return nil, apperrors.NewInvalidTransition(string(c.Status), string(next))
	}

	now := s.now()
	oldStatus := c.Status
	c.Status = next
	switch next {
	case domain.CaseStatusResolved:
		c.ResolvedAt = &now
	case domain.CaseStatusClosed:
		if c.ResolvedAt == nil {
			c.ResolvedAt = &now
		}
	}

	if err := s.cases.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			fresh, readErr := s.getCase(ctx, c.ID)
			if readErr != nil {
				return nil, readErr
			}
			return s.transition(ctx, fresh, next, actor, comment)
		}
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:   eventForStatus(next),
		CaseID: c.ID,
		Actor:  actor,
		Payload: events.CaseStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: next,
			Comment:   comment,
		},
	})
	return c, nil
}

func (s *CaseService) getCase(ctx context.Context, caseID string) (*domain.AfterSalesCase, error) {
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("case", map[string]any{"case_id": caseID})
		}
		return nil, err
	}
	return c, nil
}

func (s *CaseService) publish(ctx context.Context, event events.Event) {
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

func generateCaseKey() string {
	return "CLM-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func validPriority(p domain.CasePriority) bool {
	for _, candidate := range domain.Priorities {
		if candidate == p {
			return true
		}
	}
	return false
}

func canAccessCase(account *domain.Account, c *domain.AfterSalesCase) bool {
	if account == nil {
		return false
	}
	switch account.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleClient:
		return c.ClientID == account.ID
	case domain.RoleProvider:
		if c.ProviderID == account.ID {
			return true
		}
		return c.ReplacementProviderID != nil && *c.ReplacementProviderID == account.ID
	}
	return false
}

// canActOnCase is access plus the right to perform remediation actions.
func canActOnCase(account *domain.Account, c *domain.AfterSalesCase) bool {
	if account == nil {
		return false
	}
	if account.Role == domain.RoleClient {
		return false
	}
	return canAccessCase(account, c)
}

func actorFor(account *domain.Account) events.Actor {
	id := account.ID
	return events.Actor{Role: account.Role, AccountID: &id}
}

func clientActor(clientID string) events.Actor {
	return events.Actor{Role: domain.RoleClient, AccountID: &clientID}
}

func providerActor(providerID string) events.Actor {
	return events.Actor{Role: domain.RoleProvider, AccountID: &providerID}
}

func staffActor(staffID string) events.Actor {
	return events.Actor{Role: domain.RoleAdmin, AccountID: &staffID}
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

var allowedTransitions = map[domain.CaseStatus][]domain.CaseStatus{
	domain.CaseStatusReported:     {domain.CaseStatusAcknowledged, domain.CaseStatusEscalated},
	domain.CaseStatusAcknowledged: {domain.CaseStatusInProgress, domain.CaseStatusEscalated},
	domain.CaseStatusInProgress:   {domain.CaseStatusResolved},
	domain.CaseStatusResolved:     {domain.CaseStatusClosed},
	domain.CaseStatusEscalated:    {domain.CaseStatusInProgress, domain.CaseStatusClosed},
	domain.CaseStatusClosed:       {},
}

func isValidTransition(current, next domain.CaseStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

func eventForStatus(status domain.CaseStatus) events.EventType {
	switch status {
	case domain.CaseStatusAcknowledged:
		return events.EventCaseAcknowledged
	case domain.CaseStatusInProgress:
		return events.EventCaseInProgress
	case domain.CaseStatusResolved:
		return events.EventCaseResolved
	case domain.CaseStatusEscalated:
		return events.EventCaseEscalated
	case domain.CaseStatusClosed:
		return events.EventCaseClosed
	default:
		return events.EventCaseReported
	}
}
