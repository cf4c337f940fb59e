package handlers

import (
	"time"

	"github.com/spec-kit/aftersales-service/internal/api/dto"
	"github.com/spec-kit/aftersales-service/internal/domain"
)

func caseSummary(c *domain.AfterSalesCase) dto.CaseSummary {
	return dto.CaseSummary{
		ID:                 c.ID,
		CaseKey:            c.CaseKey,
		JobID:              c.JobID,
		Title:              c.Title,
		Status:             c.Status,
		Priority:           c.Priority,
		ReportedAt:         c.ReportedAt,
		ResponseDeadline:   c.ProviderResponseDeadline,
		ResolutionDeadline: c.ResolutionDeadline,
		Disputed:           c.Disputed,
		UpdatedAt:          c.UpdatedAt,
	}
}

// caseDetail renders the full case view, including how much of each deadline
// budget is left at the given instant. Remainders clamp at zero once a
// deadline passes; a deadline already met by the provider stays at zero too.
func caseDetail(c *domain.AfterSalesCase, notes []domain.CaseNote, now time.Time) dto.CaseDetailResponse {
	noteItems := make([]dto.CaseNoteResponse, 0, len(notes))
	for i := range notes {
		noteItems = append(noteItems, caseNoteResponse(&notes[i]))
	}

	var responseRemaining int64
	if c.ProviderRespondedAt == nil {
		responseRemaining = secondsUntil(c.ProviderResponseDeadline, now)
	}
	var resolutionRemaining int64
	if c.ResolvedAt == nil && c.Open() {
		resolutionRemaining = secondsUntil(c.ResolutionDeadline, now)
	}

	return dto.CaseDetailResponse{
		ID:                         c.ID,
		CaseKey:                    c.CaseKey,
		JobID:                      c.JobID,
		ClientID:                   c.ClientID,
		ProviderID:                 c.ProviderID,
		InvoiceID:                  c.InvoiceID,
		Title:                      c.Title,
		Description:                c.Description,
		Photos:                     c.Photos,
		Status:                     c.Status,
		Priority:                   c.Priority,
		ReportedAt:                 c.ReportedAt,
		ResponseDeadline:           c.ProviderResponseDeadline,
		ProviderRespondedAt:        c.ProviderRespondedAt,
		ResolutionDeadline:         c.ResolutionDeadline,
		ResponseRemainingSeconds:   responseRemaining,
		ResolutionRemainingSeconds: resolutionRemaining,
		ResolvedAt:                 c.ResolvedAt,
		EscalatedAt:                c.EscalatedAt,
		RespondedLate:              c.RespondedLate,
		Disputed:                   c.Disputed,
		HoldAmountCents:            c.HoldAmountCents,
		HoldApplied:                c.HoldApplied,
		InterventionScheduled:      c.InterventionScheduled,
		InterventionDate:           c.InterventionDate,
		InterventionSlot:           c.InterventionSlot,
		InterventionDone:           c.InterventionDone,
		DamageReported:             c.DamageReported,
		DamageAmountCents:          c.DamageAmountCents,
		DamageResolution:           c.DamageResolution,
		InternalTakeover:           c.InternalTakeover,
		ReplacementProviderID:      c.ReplacementProviderID,
		Notes:                      noteItems,
		CreatedAt:                  c.CreatedAt,
		UpdatedAt:                  c.UpdatedAt,
	}
}

func secondsUntil(deadline, now time.Time) int64 {
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int64(remaining / time.Second)
}

func caseNoteResponse(n *domain.CaseNote) dto.CaseNoteResponse {
	return dto.CaseNoteResponse{
		ID:         n.ID,
		AuthorID:   n.AuthorID,
		AuthorRole: n.AuthorRole,
		Message:    n.Message,
		Photos:     n.Photos,
		CreatedAt:  n.CreatedAt,
	}
}

func holdResponse(h *domain.PaymentHold) dto.HoldResponse {
	return dto.HoldResponse{
		ID:          h.ID,
		CaseID:      h.CaseID,
		ProviderID:  h.ProviderID,
		AmountCents: h.AmountCents,
		Status:      h.Status,
		Reason:      h.Reason,
		ReleasedAt:  h.ReleasedAt,
		CreatedAt:   h.CreatedAt,
	}
}

func creditNoteResponse(n *domain.CreditNote) dto.CreditNoteResponse {
	return dto.CreditNoteResponse{
		ID:          n.ID,
		CaseID:      n.CaseID,
		HoldID:      n.HoldID,
		AmountCents: n.AmountCents,
		Reason:      n.Reason,
		CreatedAt:   n.IssuedAt,
	}
}

func arbitrationResponse(a *domain.Arbitration) dto.ArbitrationResponse {
	return dto.ArbitrationResponse{
		ID:          a.ID,
		CaseID:      a.CaseID,
		Status:      a.Status,
		Decision:    a.Decision,
		Action:      a.Action,
		Explanation: a.Explanation,
		RefundCents: a.RefundCents,
		DecidedAt:   a.DecidedAt,
		AppliedAt:   a.AppliedAt,
		CreatedAt:   a.CreatedAt,
	}
}

func alertResponse(a *domain.AfterSalesAlert) dto.AlertResponse {
	return dto.AlertResponse{
		ID:             a.ID,
		CaseID:         a.CaseID,
		Type:           a.Type,
		Message:        a.Message,
		AcknowledgedAt: a.AcknowledgedAt,
		CreatedAt:      a.CreatedAt,
	}
}

func notificationResponse(n *domain.AfterSalesNotification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:             n.ID,
		CaseID:         n.CaseID,
		Type:           n.Type,
		Title:          n.Title,
		Body:           n.Body,
		ActionDeadline: n.ActionDeadline,
		ReadAt:         n.ReadAt,
		CreatedAt:      n.CreatedAt,
	}
}
