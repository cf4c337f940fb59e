package worker

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/config"
	"github.com/spec-kit/aftersales-service/internal/service"
	"github.com/spec-kit/aftersales-service/internal/tasks"
)

// DispatchWorker consumes the task queue: notification delivery and retries of
// failed arbitration applications. A returned handler error re-queues the task
// under asynq's backoff policy.
type DispatchWorker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// NewDispatchWorker wires the asynq server and handlers.
func NewDispatchWorker(cfg config.RedisConfig, notifications *service.NotificationService, arbitrations *service.ArbitrationService, cases *service.CaseService, ledger *service.LedgerService, logger *zap.Logger) *DispatchWorker {
	if logger == nil {
		logger = zap.NewNop()
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues:      map[string]int{"default": 1},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeNotificationDeliver, handleNotificationDeliver(notifications, logger))
	mux.HandleFunc(tasks.TypeArbitrationRetry, handleArbitrationRetry(arbitrations, logger))
	mux.HandleFunc(tasks.TypeTransferRetry, handleTransferRetry(ledger, logger))
	mux.HandleFunc(tasks.TypeHoldRetry, handleHoldRetry(cases, logger))

	return &DispatchWorker{server: server, mux: mux, logger: logger}
}

// Start runs the worker in the background.
func (w *DispatchWorker) Start() {
	go func() {
		w.logger.Info("dispatch worker starting")
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("dispatch worker stopped", zap.Error(err))
		}
	}()
}

// Shutdown drains in-flight tasks and stops the worker.
func (w *DispatchWorker) Shutdown() {
	w.server.Shutdown()
}

func handleNotificationDeliver(notifications *service.NotificationService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.NotificationDeliverPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Warn("invalid notification payload", zap.Error(err))
			return nil
		}
		if err := notifications.Deliver(ctx, p.NotificationID); err != nil {
			logger.Warn("notification delivery failed",
				zap.String("notification_id", p.NotificationID),
				zap.Error(err))
			return err
		}
		return nil
	}
}

func handleTransferRetry(ledger *service.LedgerService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.TransferRetryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Warn("invalid transfer retry payload", zap.Error(err))
			return nil
		}
		if err := ledger.RetryTransfer(ctx, p.ProviderID, p.AmountCents, p.Reference); err != nil {
			logger.Warn("transfer retry failed",
				zap.String("hold_id", p.HoldID),
				zap.Error(err))
			return err
		}
		return nil
	}
}

func handleHoldRetry(cases *service.CaseService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.HoldRetryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Warn("invalid hold retry payload", zap.Error(err))
			return nil
		}
		if err := cases.RetryHoldApplication(ctx, p.CaseID); err != nil {
			logger.Warn("hold retry failed",
				zap.String("case_id", p.CaseID),
				zap.Error(err))
			return err
		}
		return nil
	}
}

func handleArbitrationRetry(arbitrations *service.ArbitrationService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.ArbitrationRetryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Warn("invalid arbitration retry payload", zap.Error(err))
			return nil
		}
		if err := arbitrations.RetryApply(ctx, p.ArbitrationID); err != nil {
			logger.Warn("arbitration retry failed",
				zap.String("arbitration_id", p.ArbitrationID),
				zap.Error(err))
			return err
		}
		return nil
	}
}
