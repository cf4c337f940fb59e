package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/events"
	"github.com/spec-kit/aftersales-service/internal/repository"
	"github.com/spec-kit/aftersales-service/internal/tasks"
	apperrors "github.com/spec-kit/aftersales-service/pkg/util"
)

// NotificationService turns case events into per-recipient notification rows
// and hands delivery to the task queue. Persist first, deliver later: the row
// is what the user's inbox reads, delivery is best effort on top.
type NotificationService struct {
	notifications repository.NotificationRepository
	cases         repository.CaseRepository
	accounts      repository.AccountRepository
	enqueuer      *tasks.Enqueuer
	logger        *zap.Logger
	now           func() time.Time
}

// NotificationDependencies bundles requirements for the notification service.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	CaseRepo         repository.CaseRepository
	AccountRepo      repository.AccountRepository
	Enqueuer         *tasks.Enqueuer
	Logger           *zap.Logger
	Clock            func() time.Time
}

// NewNotificationService constructs the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notifications: deps.NotificationRepo,
		cases:         deps.CaseRepo,
		accounts:      deps.AccountRepo,
		enqueuer:      deps.Enqueuer,
		logger:        logger,
		now:           clock,
	}
}

// RegisterHandlers subscribes the service to every event it fans out.
func (s *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventCaseReported,
		events.EventCaseAcknowledged,
		events.EventCaseEscalated,
		events.EventCaseResolved,
		events.EventCaseClosed,
		events.EventCaseDisputed,
		events.EventInterventionPlanned,
		events.EventHoldApplied,
		events.EventHoldReleased,
		events.EventCreditNoteIssued,
		events.EventArbitrationDecided,
	} {
		dispatcher.Subscribe(eventType, s.handleEvent)
	}
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	c, err := s.cases.GetByID(ctx, event.CaseID)
	if err != nil {
		return err
	}

	for _, target := range s.recipientsFor(event, c) {
		n := &domain.AfterSalesNotification{
			CaseID:        c.ID,
			RecipientID:   target.id,
			RecipientRole: target.role,
			Type:          notificationTypeFor(event.Type),
			Title:         target.title,
			Body:          target.body,
		}
		if deadline := deadlineFor(event.Type, c); deadline != nil {
			n.ActionDeadline = deadline
		}
		if err := s.notifications.Create(ctx, n); err != nil {
			s.logger.Warn("notification persist failed",
				zap.String("case_id", c.ID),
				zap.String("recipient_id", target.id),
				zap.Error(err))
			continue
		}
		s.enqueuer.EnqueueNotificationDeliver(tasks.NotificationDeliverPayload{
			NotificationID: n.ID,
			CaseID:         c.ID,
			RecipientID:    target.id,
		})
	}
	return nil
}

type notificationTarget struct {
	id    string
	role  domain.AccountRole
	title string
	body  string
}

// recipientsFor decides who hears about an event and with what copy.
func (s *NotificationService) recipientsFor(event events.Event, c *domain.AfterSalesCase) []notificationTarget {
	toClient := func(title, body string) notificationTarget {
		return notificationTarget{id: c.ClientID, role: domain.RoleClient, title: title, body: body}
	}
	toProvider := func(title, body string) notificationTarget {
		return notificationTarget{id: c.ProviderID, role: domain.RoleProvider, title: title, body: body}
	}

	switch event.Type {
	case events.EventCaseReported:
		return []notificationTarget{
			toProvider(
				fmt.Sprintf("New claim %s", c.CaseKey),
				fmt.Sprintf("A client reported %q against a completed job. Respond before %s.",
					c.Title, c.ProviderResponseDeadline.Format(time.RFC1123))),
			toClient(
				fmt.Sprintf("Claim %s opened", c.CaseKey),
				"Your claim was registered and the provider has been notified."),
		}
	case events.EventCaseAcknowledged:
		return []notificationTarget{toClient(
			fmt.Sprintf("Claim %s acknowledged", c.CaseKey),
			"The provider accepted responsibility and will schedule the repair.")}
	case events.EventCaseEscalated:
		return []notificationTarget{
			toClient(
				fmt.Sprintf("Claim %s escalated", c.CaseKey),
				"The provider did not respond in time. Our team has taken over."),
			toProvider(
				fmt.Sprintf("Claim %s escalated", c.CaseKey),
				"You missed the response deadline and the case was escalated internally."),
		}
	case events.EventCaseResolved:
		return []notificationTarget{toClient(
			fmt.Sprintf("Claim %s resolved", c.CaseKey),
			"The repair work is reported complete. Close the claim if you are satisfied.")}
	case events.EventCaseClosed:
		return []notificationTarget{
			toClient(fmt.Sprintf("Claim %s closed", c.CaseKey), "Thanks for confirming; the claim is closed."),
			toProvider(fmt.Sprintf("Claim %s closed", c.CaseKey), "The claim is closed and any withheld funds settle per its outcome."),
		}
	case events.EventCaseDisputed:
		return []notificationTarget{toClient(
			fmt.Sprintf("Claim %s disputed", c.CaseKey),
			"The provider disputed responsibility. An arbitrator will review both sides.")}
	case events.EventInterventionPlanned:
		return []notificationTarget{toClient(
			fmt.Sprintf("Repair visit booked for %s", c.CaseKey),
			"The provider scheduled an intervention for your claim.")}
	case events.EventHoldApplied:
		return []notificationTarget{toProvider(
			fmt.Sprintf("Payment hold on claim %s", c.CaseKey),
			"Part of the job payment is withheld until the claim settles.")}
	case events.EventHoldReleased:
		return []notificationTarget{toProvider(
			fmt.Sprintf("Payment hold released for %s", c.CaseKey),
			"The withheld funds from this claim were released to you.")}
	case events.EventCreditNoteIssued:
		return []notificationTarget{toClient(
			fmt.Sprintf("Credit note issued for %s", c.CaseKey),
			"A credit note from this claim is now on your account.")}
	case events.EventArbitrationDecided:
		return []notificationTarget{
			toClient(fmt.Sprintf("Decision reached on %s", c.CaseKey), "An arbitrator decided your disputed claim."),
			toProvider(fmt.Sprintf("Decision reached on %s", c.CaseKey), "An arbitrator decided the disputed claim against you."),
		}
	default:
		return nil
	}
}

func notificationTypeFor(eventType events.EventType) domain.NotificationType {
	switch eventType {
	case events.EventCaseReported:
		return domain.NotificationCaseReported
	case events.EventCaseAcknowledged:
		return domain.NotificationCaseAcknowledged
	case events.EventCaseEscalated:
		return domain.NotificationCaseEscalated
	case events.EventCaseResolved:
		return domain.NotificationCaseResolved
	case events.EventCaseClosed:
		return domain.NotificationCaseClosed
	case events.EventCaseDisputed:
		return domain.NotificationCaseDisputed
	case events.EventInterventionPlanned:
		return domain.NotificationInterventionPlanned
	case events.EventHoldApplied:
		return domain.NotificationHoldApplied
	case events.EventHoldReleased:
		return domain.NotificationHoldReleased
	case events.EventCreditNoteIssued:
		return domain.NotificationCreditNoteIssued
	case events.EventArbitrationDecided:
		return domain.NotificationArbitrationDecided
	default:
		return domain.NotificationCaseReported
	}
}

func deadlineFor(eventType events.EventType, c *domain.AfterSalesCase) *time.Time {
	if eventType == events.EventCaseReported {
		d := c.ProviderResponseDeadline
		return &d
	}
	return nil
}

// Deliver pushes one persisted notification to the recipient's channel. The
// task queue calls this; a returned error triggers its retry policy.
func (s *NotificationService) Deliver(ctx context.Context, notificationID string) error {
	n, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", map[string]any{"notification_id": notificationID})
		}
		return err
	}
	if n.DeliveredAt != nil {
		return nil
	}

	account, err := s.accounts.GetByID(ctx, n.RecipientID)
	if err != nil {
		return err
	}

	// Transport is a stub: the log line stands in for the email/push provider
	// call until one is wired up.
	s.logger.Info("notification delivered",
		zap.String("notification_id", n.ID),
		zap.String("recipient_email", account.Email),
		zap.String("type", string(n.Type)),
		zap.String("title", n.Title))

	return s.notifications.MarkDelivered(ctx, n.ID, s.now())
}

// ListForRecipient returns the recipient's inbox, newest first.
func (s *NotificationService) ListForRecipient(ctx context.Context, recipientID string, limit, offset int) ([]domain.AfterSalesNotification, error) {
	return s.notifications.ListByRecipient(ctx, recipientID, limit, offset)
}

// MarkRead stamps a notification as read by its recipient.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, recipientID string) error {
	return s.notifications.MarkRead(ctx, notificationID, recipientID, s.now())
}
