package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NoopGateway stands in when no processor key is configured. Every call
// succeeds and is logged, which keeps development environments runnable.
type NoopGateway struct {
	logger *zap.Logger
}

// NewNoopGateway builds the stub gateway.
func NewNoopGateway(logger *zap.Logger) *NoopGateway {
	return &NoopGateway{logger: logger}
}

func (g *NoopGateway) Authorize(_ context.Context, accountID string, amountCents int64, currency, reference string) (string, error) {
	id := fmt.Sprintf("noop_auth_%s", uuid.NewString())
	g.logger.Info("noop authorize",
		zap.String("account_id", accountID),
		zap.Int64("amount_cents", amountCents),
		zap.String("currency", currency),
		zap.String("reference", reference))
	return id, nil
}

func (g *NoopGateway) Capture(_ context.Context, externalID string, amountCents int64) error {
	g.logger.Info("noop capture", zap.String("external_id", externalID), zap.Int64("amount_cents", amountCents))
	return nil
}

func (g *NoopGateway) Refund(_ context.Context, externalID string, amountCents int64, reason string) error {
	g.logger.Info("noop refund",
		zap.String("external_id", externalID),
		zap.Int64("amount_cents", amountCents),
		zap.String("reason", reason))
	return nil
}

func (g *NoopGateway) Transfer(_ context.Context, destinationAccountID string, amountCents int64, currency, reference string) (string, error) {
	id := fmt.Sprintf("noop_tr_%s", uuid.NewString())
	g.logger.Info("noop transfer",
		zap.String("destination", destinationAccountID),
		zap.Int64("amount_cents", amountCents),
		zap.String("reference", reference))
	return id, nil
}
