package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/service"
)

// SweepLocker serializes sweep runs across API instances. A nil locker means
// the process sweeps unconditionally (single-instance deployments, tests).
type SweepLocker interface {
	AcquireSweepLock(ctx context.Context, ttl time.Duration) (bool, error)
	ReleaseSweepLock(ctx context.Context) error
}

// StartSweepWorker runs the deadline engine on a fixed interval until the
// context is cancelled. One sweep also fires immediately at startup so a
// restart does not wait a full interval to catch up on missed deadlines.
func StartSweepWorker(ctx context.Context, escalations *service.EscalationService, locker SweepLocker, interval time.Duration, logger *zap.Logger) {
	if escalations == nil {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		runSweep(ctx, escalations, locker, interval, logger)
		for {
			select {
			case <-ctx.Done():
				logger.Info("sweep worker stopped")
				return
			case <-ticker.C:
				runSweep(ctx, escalations, locker, interval, logger)
			}
		}
	}()
}

func runSweep(ctx context.Context, escalations *service.EscalationService, locker SweepLocker, interval time.Duration, logger *zap.Logger) {
	if locker != nil {
		ok, err := locker.AcquireSweepLock(ctx, interval)
		if err != nil {
			// Redis being down must not stall deadline enforcement.
			logger.Warn("sweep lock unavailable, running unguarded", zap.Error(err))
		} else if !ok {
			logger.Debug("sweep skipped, another instance holds the lock")
			return
		} else {
			defer func() {
				if err := locker.ReleaseSweepLock(ctx); err != nil {
					logger.Debug("sweep lock release failed", zap.Error(err))
				}
			}()
		}
	}

	if err := escalations.Sweep(ctx); err != nil && ctx.Err() == nil {
		logger.Warn("sweep run failed", zap.Error(err))
	}
}
