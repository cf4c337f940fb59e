package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/events"
)

type memNotificationRepo struct {
	mu   sync.Mutex
	seq  int
	rows []domain.AfterSalesNotification
}

func (r *memNotificationRepo) Create(_ context.Context, n *domain.AfterSalesNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	n.ID = fmt.Sprintf("notif-%d", r.seq)
	n.CreatedAt = testTime
	r.rows = append(r.rows, *n)
	return nil
}

func (r *memNotificationRepo) GetByID(_ context.Context, id string) (*domain.AfterSalesNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			clone := r.rows[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memNotificationRepo) ListByRecipient(_ context.Context, recipientID string, _, _ int) ([]domain.AfterSalesNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AfterSalesNotification, 0)
	for _, n := range r.rows {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memNotificationRepo) MarkDelivered(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows[i].DeliveredAt = &at
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *memNotificationRepo) MarkRead(_ context.Context, id, recipientID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id && r.rows[i].RecipientID == recipientID {
			r.rows[i].ReadAt = &at
			return nil
		}
	}
	return pgx.ErrNoRows
}

// notificationEnv extends the service stack with a subscribed notification
// fan-out, the way main wires it.
func newNotificationEnv() (*testEnv, *NotificationService, *memNotificationRepo) {
	env := newTestEnv()
	repo := &memNotificationRepo{}
	svc := NewNotificationService(NotificationDependencies{
		NotificationRepo: repo,
		CaseRepo:         env.cases,
		AccountRepo:      env.accounts,
		Clock:            func() time.Time { return env.clock },
	})

	dispatcher := events.NewInMemoryDispatcher(nil)
	svc.RegisterHandlers(dispatcher)
	env.caseService.dispatcher = dispatcher
	env.escalations.dispatcher = dispatcher
	return env, svc, repo
}

func TestCaseReportFansOutToBothParties(t *testing.T) {
	env, _, repo := newNotificationEnv()
	c, err := env.report(domain.CasePriorityUrgent)
	if err != nil {
		t.Fatalf("ReportCase: %v", err)
	}

	ctx := context.Background()
	providerInbox, _ := repo.ListByRecipient(ctx, "provider-1", 50, 0)
	if len(providerInbox) != 1 {
		t.Fatalf("provider notifications = %d, want 1", len(providerInbox))
	}
	if providerInbox[0].Type != domain.NotificationCaseReported {
		t.Fatalf("type = %s, want case_reported", providerInbox[0].Type)
	}
	// The provider copy carries the response deadline as a call to action.
	if providerInbox[0].ActionDeadline == nil || !providerInbox[0].ActionDeadline.Equal(c.ProviderResponseDeadline) {
		t.Fatalf("action deadline = %v, want %v", providerInbox[0].ActionDeadline, c.ProviderResponseDeadline)
	}

	clientInbox, _ := repo.ListByRecipient(ctx, "client-1", 50, 0)
	if len(clientInbox) != 1 {
		t.Fatalf("client notifications = %d, want 1", len(clientInbox))
	}
}

func TestEscalationNotifiesBothParties(t *testing.T) {
	env, _, repo := newNotificationEnv()
	if _, err := env.report(domain.CasePriorityUrgent); err != nil {
		t.Fatalf("ReportCase: %v", err)
	}

	ctx := context.Background()
	env.advance(61 * time.Minute)
	if err := env.escalations.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	for _, recipient := range []string{"client-1", "provider-1"} {
		inbox, _ := repo.ListByRecipient(ctx, recipient, 50, 0)
		found := false
		for _, n := range inbox {
			if n.Type == domain.NotificationCaseEscalated {
				found = true
			}
		}
		if !found {
			t.Fatalf("no escalation notification for %s", recipient)
		}
	}
}

func TestDeliverIsIdempotent(t *testing.T) {
	env, svc, repo := newNotificationEnv()
	if _, err := env.report(domain.CasePriorityImportant); err != nil {
		t.Fatalf("ReportCase: %v", err)
	}

	ctx := context.Background()
	inbox, _ := repo.ListByRecipient(ctx, "provider-1", 50, 0)
	if len(inbox) == 0 {
		t.Fatal("nothing to deliver")
	}

	if err := svc.Deliver(ctx, inbox[0].ID); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	delivered, _ := repo.GetByID(ctx, inbox[0].ID)
	if delivered.DeliveredAt == nil {
		t.Fatal("delivered_at not stamped")
	}
	stamp := *delivered.DeliveredAt

	env.advance(5 * time.Minute)
	if err := svc.Deliver(ctx, inbox[0].ID); err != nil {
		t.Fatalf("duplicate Deliver: %v", err)
	}
	again, _ := repo.GetByID(ctx, inbox[0].ID)
	if !again.DeliveredAt.Equal(stamp) {
		t.Fatalf("duplicate delivery moved the stamp: %v vs %v", again.DeliveredAt, stamp)
	}
}

func TestMarkReadScopedToRecipient(t *testing.T) {
	env, svc, repo := newNotificationEnv()
	if _, err := env.report(domain.CasePriorityImportant); err != nil {
		t.Fatalf("ReportCase: %v", err)
	}

	ctx := context.Background()
	inbox, _ := repo.ListByRecipient(ctx, "client-1", 50, 0)
	if len(inbox) == 0 {
		t.Fatal("empty client inbox")
	}

	// Someone else's id does not mark the row.
	if err := svc.MarkRead(ctx, inbox[0].ID, "provider-1"); err == nil {
		t.Fatal("foreign MarkRead succeeded")
	}
	if err := svc.MarkRead(ctx, inbox[0].ID, "client-1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	read, _ := repo.GetByID(ctx, inbox[0].ID)
	if read.ReadAt == nil {
		t.Fatal("read_at not stamped")
	}
}
