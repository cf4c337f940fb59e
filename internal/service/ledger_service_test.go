package service

import (
	"context"
	"testing"

	"github.com/spec-kit/aftersales-service/internal/domain"
	apperrors "github.com/spec-kit/aftersales-service/pkg/util"
)

func TestApplyHoldClampsAmount(t *testing.T) {
	tests := []struct {
		name         string
		invoiceCents int64
		wantCents    int64
	}{
		{"quarter of the invoice", 100000, 25000},
		{"raised to the floor", 10000, 5000},
		{"capped at the ceiling", 10000000, 500000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			hold, err := env.ledger.ApplyHold(context.Background(), "case-x", "provider-1", tt.invoiceCents, "claim:test")
			if err != nil {
				t.Fatalf("ApplyHold: %v", err)
			}
			if hold.Status != domain.HoldStatusActive {
				t.Fatalf("status = %s, want active", hold.Status)
			}
			if hold.AmountCents != tt.wantCents {
				t.Fatalf("amount = %d, want %d", hold.AmountCents, tt.wantCents)
			}
			if hold.GatewayRef == nil {
				t.Fatal("gateway reference not recorded")
			}
		})
	}
}

func TestApplyHoldRejectsSecondActiveHold(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.ledger.ApplyHold(ctx, "case-x", "provider-1", 100000, "claim:test"); err != nil {
		t.Fatalf("first ApplyHold: %v", err)
	}
	_, err := env.ledger.ApplyHold(ctx, "case-x", "provider-1", 100000, "claim:test")
	if !apperrors.IsCode(err, "CONFLICT") {
		t.Fatalf("second ApplyHold: %v, want CONFLICT", err)
	}
}

func TestApplyHoldRejectsNonPositiveInvoice(t *testing.T) {
	env := newTestEnv()
	_, err := env.ledger.ApplyHold(context.Background(), "case-x", "provider-1", 0, "claim:test")
	if !apperrors.IsCode(err, "AMOUNT_OUT_OF_BOUNDS") {
		t.Fatalf("error = %v, want AMOUNT_OUT_OF_BOUNDS", err)
	}
}

func TestApplyHoldSurfacesGatewayFailure(t *testing.T) {
	env := newTestEnv()
	env.gateway.authorizeErr = errGatewayDown

	_, err := env.ledger.ApplyHold(context.Background(), "case-x", "provider-1", 100000, "claim:test")
	if !apperrors.IsCode(err, "GATEWAY_ERROR") {
		t.Fatalf("error = %v, want GATEWAY_ERROR", err)
	}
	// No ledger row without a successful authorization.
	holds, _ := env.ledger.HoldsForCase(context.Background(), "case-x")
	if len(holds) != 0 {
		t.Fatalf("holds recorded despite gateway failure: %d", len(holds))
	}
}

func TestReleaseHoldIsOneShot(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	hold, err := env.ledger.ApplyHold(ctx, "case-x", "provider-1", 100000, "claim:test")
	if err != nil {
		t.Fatalf("ApplyHold: %v", err)
	}

	if _, err := env.ledger.ReleaseHold(ctx, hold.ID); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if len(env.gateway.transfers) != 1 || env.gateway.transfers[0] != 25000 {
		t.Fatalf("transfers = %v, want one of 25000", env.gateway.transfers)
	}

	_, err = env.ledger.ReleaseHold(ctx, hold.ID)
	if !apperrors.IsCode(err, "ALREADY_RELEASED") {
		t.Fatalf("second release: %v, want ALREADY_RELEASED", err)
	}
	// The second attempt must not move money again.
	if len(env.gateway.transfers) != 1 {
		t.Fatalf("transfers after duplicate release = %v", env.gateway.transfers)
	}
}

func TestReleaseHoldSurvivesTransferFailure(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	hold, err := env.ledger.ApplyHold(ctx, "case-x", "provider-1", 100000, "claim:test")
	if err != nil {
		t.Fatalf("ApplyHold: %v", err)
	}

	env.gateway.transferErr = errGatewayDown
	if _, err := env.ledger.ReleaseHold(ctx, hold.ID); err != nil {
		t.Fatalf("release with failing transfer: %v", err)
	}

	// The ledger row flipped regardless; the payout retries out of band.
	updated, err := env.holds.GetByID(ctx, hold.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != domain.HoldStatusReleased {
		t.Fatalf("status = %s, want released", updated.Status)
	}
	if len(env.gateway.transfers) != 0 {
		t.Fatalf("transfers = %v, want none while gateway is down", env.gateway.transfers)
	}

	// Once the gateway recovers, the queued retry pays the provider out.
	env.gateway.transferErr = nil
	if err := env.ledger.RetryTransfer(ctx, "provider-1", hold.AmountCents, "release:case-x"); err != nil {
		t.Fatalf("RetryTransfer: %v", err)
	}
	if len(env.gateway.transfers) != 1 || env.gateway.transfers[0] != hold.AmountCents {
		t.Fatalf("transfers = %v, want [%d]", env.gateway.transfers, hold.AmountCents)
	}
}

func TestForfeitHoldIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	hold, err := env.ledger.ApplyHold(ctx, "case-x", "provider-1", 100000, "claim:test")
	if err != nil {
		t.Fatalf("ApplyHold: %v", err)
	}

	if err := env.ledger.ForfeitHold(ctx, hold.ID); err != nil {
		t.Fatalf("first forfeit: %v", err)
	}
	if err := env.ledger.ForfeitHold(ctx, hold.ID); err != nil {
		t.Fatalf("duplicate forfeit: %v", err)
	}

	updated, _ := env.holds.GetByID(ctx, hold.ID)
	if updated.Status != domain.HoldStatusForfeited {
		t.Fatalf("status = %s, want forfeited", updated.Status)
	}
	if len(env.gateway.transfers) != 0 {
		t.Fatalf("forfeit moved money: %v", env.gateway.transfers)
	}
}

func TestForfeitReleasedHoldRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	hold, err := env.ledger.ApplyHold(ctx, "case-x", "provider-1", 100000, "claim:test")
	if err != nil {
		t.Fatalf("ApplyHold: %v", err)
	}
	if _, err := env.ledger.ReleaseHold(ctx, hold.ID); err != nil {
		t.Fatalf("release: %v", err)
	}

	err = env.ledger.ForfeitHold(ctx, hold.ID)
	if !apperrors.IsCode(err, "ALREADY_RELEASED") {
		t.Fatalf("forfeit after release: %v, want ALREADY_RELEASED", err)
	}
}

func TestReleaseHoldPortionSplitsFunds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	hold, err := env.ledger.ApplyHold(ctx, "case-x", "provider-1", 100000, "claim:test")
	if err != nil {
		t.Fatalf("ApplyHold: %v", err)
	}

	if err := env.ledger.ReleaseHoldPortion(ctx, hold.ID, 10000); err != nil {
		t.Fatalf("ReleaseHoldPortion: %v", err)
	}
	if len(env.gateway.transfers) != 1 || env.gateway.transfers[0] != 10000 {
		t.Fatalf("transfers = %v, want one of 10000", env.gateway.transfers)
	}
	updated, _ := env.holds.GetByID(ctx, hold.ID)
	if updated.Status != domain.HoldStatusReleased {
		t.Fatalf("status = %s, want released", updated.Status)
	}

	if err := env.ledger.ReleaseHoldPortion(ctx, hold.ID, 5000); !apperrors.IsCode(err, "ALREADY_RELEASED") {
		t.Fatalf("second portion release: %v, want ALREADY_RELEASED", err)
	}
}

func TestReleaseHoldPortionBoundsChecked(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	hold, err := env.ledger.ApplyHold(ctx, "case-x", "provider-1", 100000, "claim:test")
	if err != nil {
		t.Fatalf("ApplyHold: %v", err)
	}

	if err := env.ledger.ReleaseHoldPortion(ctx, hold.ID, hold.AmountCents+1); !apperrors.IsCode(err, "AMOUNT_OUT_OF_BOUNDS") {
		t.Fatalf("over-hold portion: %v, want AMOUNT_OUT_OF_BOUNDS", err)
	}
	if err := env.ledger.ReleaseHoldPortion(ctx, hold.ID, -1); !apperrors.IsCode(err, "AMOUNT_OUT_OF_BOUNDS") {
		t.Fatalf("negative portion: %v, want AMOUNT_OUT_OF_BOUNDS", err)
	}
}

func TestIssueCreditNoteValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.ledger.IssueCreditNote(ctx, "case-x", nil, "provider-1", 0, "reason"); !apperrors.IsCode(err, "AMOUNT_OUT_OF_BOUNDS") {
		t.Fatalf("zero amount: %v, want AMOUNT_OUT_OF_BOUNDS", err)
	}
	if _, err := env.ledger.IssueCreditNote(ctx, "case-x", nil, "provider-1", 5000, ""); !apperrors.IsCode(err, "MISSING_REQUIRED_FIELD") {
		t.Fatalf("empty reason: %v, want MISSING_REQUIRED_FIELD", err)
	}

	note, err := env.ledger.IssueCreditNote(ctx, "case-x", nil, "provider-1", 5000, "damage settlement")
	if err != nil {
		t.Fatalf("IssueCreditNote: %v", err)
	}
	if note.AmountCents != 5000 || note.ProviderID != "provider-1" {
		t.Fatalf("note = %+v", note)
	}
}

func TestApplyCreditNoteRespectsRemainingBalance(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	note, err := env.ledger.IssueCreditNote(ctx, "case-x", nil, "provider-1", 20000, "arbitration:arb-x")
	if err != nil {
		t.Fatalf("IssueCreditNote: %v", err)
	}

	if _, err := env.ledger.ApplyCreditNoteToInvoice(ctx, note.ID, "inv-2", 15000); err != nil {
		t.Fatalf("first application: %v", err)
	}
	// 5000 remains on the note; 6000 must not fit.
	if _, err := env.ledger.ApplyCreditNoteToInvoice(ctx, note.ID, "inv-3", 6000); !apperrors.IsCode(err, "AMOUNT_OUT_OF_BOUNDS") {
		t.Fatalf("over-balance application: %v, want AMOUNT_OUT_OF_BOUNDS", err)
	}
	if _, err := env.ledger.ApplyCreditNoteToInvoice(ctx, note.ID, "inv-3", 5000); err != nil {
		t.Fatalf("exact remainder application: %v", err)
	}
}

func TestFindCreditNoteByReason(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	if _, err := env.ledger.IssueCreditNote(ctx, "case-x", nil, "provider-1", 5000, "arbitration:arb-1"); err != nil {
		t.Fatalf("IssueCreditNote: %v", err)
	}

	found, err := env.ledger.FindCreditNoteByReason(ctx, "case-x", "arbitration:arb-1")
	if err != nil || found == nil {
		t.Fatalf("existing reason not found: %v %v", found, err)
	}
	missing, err := env.ledger.FindCreditNoteByReason(ctx, "case-x", "arbitration:arb-2")
	if err != nil || missing != nil {
		t.Fatalf("unknown reason lookup = %v %v, want nil nil", missing, err)
	}
}
