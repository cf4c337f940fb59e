package payment

import (
	"context"
	"time"
)

// Gateway abstracts the payment processor the hold ledger calls out to.
// Implementations must honor the context deadline; ledger callers bound every
// call so a slow processor cannot stall a state transition.
type Gateway interface {
	// Authorize places funds on hold on the payer's instrument.
	Authorize(ctx context.Context, accountID string, amountCents int64, currency, reference string) (string, error)
	// Capture settles previously authorized funds.
	Capture(ctx context.Context, externalID string, amountCents int64) error
	// Refund returns funds to the payer.
	Refund(ctx context.Context, externalID string, amountCents int64, reason string) error
	// Transfer pays out to a connected provider account.
	Transfer(ctx context.Context, destinationAccountID string, amountCents int64, currency, reference string) (string, error)
}

// CallTimeout bounds one gateway call regardless of the parent context.
func CallTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
