package handlers

import (
	"testing"
	"time"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

func TestCaseDetailComputesTimeRemaining(t *testing.T) {
	reported := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	c := &domain.AfterSalesCase{
		Status:                   domain.CaseStatusReported,
		ReportedAt:               reported,
		ProviderResponseDeadline: reported.Add(time.Hour),
		ResolutionDeadline:       reported.Add(24 * time.Hour),
	}

	detail := caseDetail(c, nil, reported.Add(15*time.Minute))
	if detail.ResponseRemainingSeconds != 45*60 {
		t.Fatalf("response remaining = %d, want %d", detail.ResponseRemainingSeconds, 45*60)
	}
	wantResolution := int64((24*time.Hour - 15*time.Minute) / time.Second)
	if detail.ResolutionRemainingSeconds != wantResolution {
		t.Fatalf("resolution remaining = %d, want %d", detail.ResolutionRemainingSeconds, wantResolution)
	}

	// Past the deadline the remainder clamps at zero, never negative.
	late := caseDetail(c, nil, reported.Add(2*time.Hour))
	if late.ResponseRemainingSeconds != 0 {
		t.Fatalf("response remaining past deadline = %d, want 0", late.ResponseRemainingSeconds)
	}

	// A provider answer stops the response countdown.
	answered := reported.Add(10 * time.Minute)
	c.ProviderRespondedAt = &answered
	c.Status = domain.CaseStatusAcknowledged
	if got := caseDetail(c, nil, reported.Add(20*time.Minute)); got.ResponseRemainingSeconds != 0 {
		t.Fatalf("response remaining after answer = %d, want 0", got.ResponseRemainingSeconds)
	}

	// A closed case counts nothing down.
	c.Status = domain.CaseStatusClosed
	if got := caseDetail(c, nil, reported); got.ResolutionRemainingSeconds != 0 {
		t.Fatalf("resolution remaining on closed case = %d, want 0", got.ResolutionRemainingSeconds)
	}
}
