package payment

import (
	"context"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/transfer"
	"go.uber.org/zap"
)

// StripeGateway implements Gateway on Stripe. The package-level stripe.Key is
// set once at boot from config.
type StripeGateway struct {
	logger *zap.Logger
}

// NewStripeGateway configures the stripe client and returns the gateway.
func NewStripeGateway(apiKey string, logger *zap.Logger) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{logger: logger}
}

// Authorize creates a manual-capture payment intent against the account.
func (g *StripeGateway) Authorize(ctx context.Context, accountID string, amountCents int64, currency, reference string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amountCents),
		Currency:      stripe.String(currency),
		Customer:      stripe.String(accountID),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		Description:   stripe.String(reference),
	}
	params.Context = ctx
	intent, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	g.logger.Debug("stripe authorize", zap.String("intent", intent.ID), zap.Int64("amount_cents", amountCents))
	return intent.ID, nil
}

// Capture settles an authorized payment intent.
func (g *StripeGateway) Capture(ctx context.Context, externalID string, amountCents int64) error {
	params := &stripe.PaymentIntentCaptureParams{
		AmountToCapture: stripe.Int64(amountCents),
	}
	params.Context = ctx
	_, err := paymentintent.Capture(externalID, params)
	return err
}

// Refund returns captured funds to the payer.
func (g *StripeGateway) Refund(ctx context.Context, externalID string, amountCents int64, reason string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(externalID),
		Amount:        stripe.Int64(amountCents),
	}
	params.Context = ctx
	if reason != "" {
		params.AddMetadata("reason", reason)
	}
	_, err := refund.New(params)
	return err
}

// Transfer pays out to a connected provider account.
func (g *StripeGateway) Transfer(ctx context.Context, destinationAccountID string, amountCents int64, currency, reference string) (string, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(currency),
		Destination: stripe.String(destinationAccountID),
	}
	params.Context = ctx
	if reference != "" {
		params.AddMetadata("reference", reference)
	}
	tr, err := transfer.New(params)
	if err != nil {
		return "", err
	}
	return tr.ID, nil
}
