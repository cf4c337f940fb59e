package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

func TestSweepRaisesApproachingAlertInsideLeadWindow(t *testing.T) {
	env := newTestEnv()
	c, err := env.report(domain.CasePriorityUrgent)
	if err != nil {
		t.Fatalf("ReportCase: %v", err)
	}

	ctx := context.Background()

	// Outside the 30-minute lead window: nothing fires.
	env.advance(20 * time.Minute)
	if err := env.escalations.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if got := env.alerts.byType(domain.AlertDeadlineApproaching); len(got) != 0 {
		t.Fatalf("approaching alert fired too early: %d", len(got))
	}

	// 35 minutes in, 25 before the deadline: inside the window.
	env.advance(15 * time.Minute)
	if err := env.escalations.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	alerts := env.alerts.byType(domain.AlertDeadlineApproaching)
	if len(alerts) != 1 {
		t.Fatalf("approaching alerts = %d, want 1", len(alerts))
	}
	if alerts[0].CaseID != c.ID {
		t.Fatalf("alert case = %s, want %s", alerts[0].CaseID, c.ID)
	}
	if len(alerts[0].RecipientIDs) != 1 || alerts[0].RecipientIDs[0] != "admin-1" {
		t.Fatalf("recipients = %v, want [admin-1]", alerts[0].RecipientIDs)
	}

	// A second sweep in the same window must not double-fire.
	if err := env.escalations.Sweep(ctx); err != nil {
		t.Fatalf("repeat Sweep: %v", err)
	}
	if got := env.alerts.byType(domain.AlertDeadlineApproaching); len(got) != 1 {
		t.Fatalf("approaching alerts after repeat sweep = %d, want 1", len(got))
	}

	// The case itself is untouched inside the lead window.
	current, _ := env.cases.GetByID(ctx, c.ID)
	if current.Status != domain.CaseStatusReported {
		t.Fatalf("status = %s, want reported", current.Status)
	}
}

func TestSweepEscalatesMissedResponseDeadlineOnce(t *testing.T) {
	env := newTestEnv()
	c, err := env.report(domain.CasePriorityUrgent)
	if err != nil {
		t.Fatalf("ReportCase: %v", err)
	}

	ctx := context.Background()
	env.advance(61 * time.Minute)

	if err := env.escalations.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	escalated, _ := env.cases.GetByID(ctx, c.ID)
	if escalated.Status != domain.CaseStatusEscalated {
		t.Fatalf("status = %s, want escalated", escalated.Status)
	}
	if escalated.EscalatedAt == nil {
		t.Fatal("escalated_at not stamped")
	}
	if got := env.alerts.byType(domain.AlertDeadlineMissed); len(got) != 1 {
		t.Fatalf("deadline_missed alerts = %d, want 1", len(got))
	}

	// Replaying the sweep changes nothing: the alert is deduplicated and an
	// escalated case carries no pending-response timer.
	env.advance(10 * time.Minute)
	if err := env.escalations.Sweep(ctx); err != nil {
		t.Fatalf("repeat Sweep: %v", err)
	}
	if got := env.alerts.byType(domain.AlertDeadlineMissed); len(got) != 1 {
		t.Fatalf("deadline_missed alerts after repeat sweep = %d, want 1", len(got))
	}
}

func TestSweepInterventionAlertTypeByPriority(t *testing.T) {
	ctx := context.Background()

	t.Run("urgent gets the hard alarm", func(t *testing.T) {
		env := newTestEnv()
		c, err := env.report(domain.CasePriorityUrgent)
		if err != nil {
			t.Fatalf("ReportCase: %v", err)
		}
		// Intervention budget for urgent is 30 minutes; the response deadline
		// is still 30 minutes away.
		env.advance(30 * time.Minute)
		if err := env.escalations.Sweep(ctx); err != nil {
			t.Fatalf("Sweep: %v", err)
		}
		if got := env.alerts.byType(domain.AlertUrgentNoResponse); len(got) != 1 {
			t.Fatalf("urgent_no_response alerts = %d, want 1", len(got))
		}

		// The passed window also hands the case to staff.
		fresh, _ := env.cases.GetByID(ctx, c.ID)
		if !fresh.InternalTakeover {
			t.Fatal("intervention window passed but case not flagged for takeover")
		}

		// A repeat sweep neither double-fires nor re-flags.
		if err := env.escalations.Sweep(ctx); err != nil {
			t.Fatalf("repeat Sweep: %v", err)
		}
		if got := env.alerts.byType(domain.AlertUrgentNoResponse); len(got) != 1 {
			t.Fatalf("urgent_no_response alerts after repeat sweep = %d, want 1", len(got))
		}
	})

	t.Run("important gets escalation_required", func(t *testing.T) {
		env := newTestEnv()
		c, err := env.report(domain.CasePriorityImportant)
		if err != nil {
			t.Fatalf("ReportCase: %v", err)
		}
		env.advance(121 * time.Minute)
		if err := env.escalations.Sweep(ctx); err != nil {
			t.Fatalf("Sweep: %v", err)
		}
		if got := env.alerts.byType(domain.AlertEscalationRequired); len(got) != 1 {
			t.Fatalf("escalation_required alerts = %d, want 1", len(got))
		}
		if got := env.alerts.byType(domain.AlertUrgentNoResponse); len(got) != 0 {
			t.Fatalf("urgent_no_response fired for an important case: %d", len(got))
		}
		fresh, _ := env.cases.GetByID(ctx, c.ID)
		if !fresh.InternalTakeover {
			t.Fatal("intervention window passed but case not flagged for takeover")
		}
	})
}

func TestSweepSkipsInterventionAfterTakeover(t *testing.T) {
	env := newTestEnv()
	c, err := env.report(domain.CasePriorityUrgent)
	if err != nil {
		t.Fatalf("ReportCase: %v", err)
	}
	ctx := context.Background()

	if _, err := env.caseService.InternalTakeover(ctx, "admin-1", c.ID, nil, "provider on vacation"); err != nil {
		t.Fatalf("InternalTakeover: %v", err)
	}

	env.advance(35 * time.Minute)
	if err := env.escalations.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if got := env.alerts.byType(domain.AlertUrgentNoResponse); len(got) != 0 {
		t.Fatalf("intervention alert fired despite takeover: %d", len(got))
	}
}

func TestEscalateYieldsWhenProviderAnswersFirst(t *testing.T) {
	env := newTestEnv()
	c, err := env.report(domain.CasePriorityUrgent)
	if err != nil {
		t.Fatalf("ReportCase: %v", err)
	}
	ctx := context.Background()
	env.advance(61 * time.Minute)

	// The sweep reads the case, then the provider's accept lands first and
	// bumps the version underneath it.
	stale, _ := env.cases.GetByID(ctx, c.ID)
	if _, err := env.caseService.ProviderRespond(ctx, "provider-1", c.ID, ProviderResponseInput{Action: "accept"}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	did, err := env.escalations.escalate(ctx, stale, testTime.Add(61*time.Minute))
	if err != nil {
		t.Fatalf("escalate with stale read: %v", err)
	}
	if did {
		t.Fatal("escalation claimed the write despite losing the version race")
	}

	// The provider's answer stands.
	fresh, _ := env.cases.GetByID(ctx, c.ID)
	if fresh.Status != domain.CaseStatusAcknowledged {
		t.Fatalf("status = %s, want acknowledged", fresh.Status)
	}
	if fresh.EscalatedAt != nil {
		t.Fatal("escalated_at stamped by the losing writer")
	}
}

func TestSweepAlertsResolutionOverrun(t *testing.T) {
	env := newTestEnv()
	c, err := env.report(domain.CasePriorityUrgent)
	if err != nil {
		t.Fatalf("ReportCase: %v", err)
	}
	ctx := context.Background()

	if _, err := env.caseService.ProviderRespond(ctx, "provider-1", c.ID, ProviderResponseInput{Action: "accept"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := env.caseService.StartProgress(ctx, env.provider(), c.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Past the 24-hour resolution budget with nothing resolved.
	env.advance(25 * time.Hour)
	if err := env.escalations.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if got := env.alerts.byType(domain.AlertEscalationRequired); len(got) != 1 {
		t.Fatalf("escalation_required alerts = %d, want 1", len(got))
	}
	current, _ := env.cases.GetByID(ctx, c.ID)
	if current.Status != domain.CaseStatusInProgress {
		t.Fatalf("overrun changed status to %s", current.Status)
	}
}

func TestSweepLeavesAnsweredCasesAlone(t *testing.T) {
	env := newTestEnv()
	c, err := env.report(domain.CasePriorityUrgent)
	if err != nil {
		t.Fatalf("ReportCase: %v", err)
	}
	ctx := context.Background()

	if _, err := env.caseService.ProviderRespond(ctx, "provider-1", c.ID, ProviderResponseInput{Action: "accept"}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Way past the response deadline, but the provider already answered.
	env.advance(2 * time.Hour)
	if err := env.escalations.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	current, _ := env.cases.GetByID(ctx, c.ID)
	if current.Status != domain.CaseStatusAcknowledged {
		t.Fatalf("status = %s, want acknowledged", current.Status)
	}
	if got := env.alerts.byType(domain.AlertDeadlineMissed); len(got) != 0 {
		t.Fatalf("deadline_missed fired for an answered case: %d", len(got))
	}
}

func TestAcknowledgeAlertClearsDashboard(t *testing.T) {
	env := newTestEnv()
	if _, err := env.report(domain.CasePriorityUrgent); err != nil {
		t.Fatalf("ReportCase: %v", err)
	}
	ctx := context.Background()

	env.advance(61 * time.Minute)
	if err := env.escalations.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	pending, err := env.escalations.ListAlerts(ctx, 50, 0)
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(pending) == 0 {
		t.Fatal("no alerts to acknowledge")
	}

	if err := env.escalations.AcknowledgeAlert(ctx, pending[0].ID, "admin-1"); err != nil {
		t.Fatalf("AcknowledgeAlert: %v", err)
	}
	remaining, err := env.escalations.ListAlerts(ctx, 50, 0)
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(remaining) != len(pending)-1 {
		t.Fatalf("unacknowledged = %d, want %d", len(remaining), len(pending)-1)
	}
}
