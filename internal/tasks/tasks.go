package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Task type identifiers routed through the asynq mux.
const (
	TypeNotificationDeliver = "notification:deliver"
	TypeArbitrationRetry    = "arbitration:retry_apply"
	TypeTransferRetry       = "ledger:retry_transfer"
	TypeHoldRetry           = "ledger:retry_hold"
)

// NotificationDeliverPayload carries one persisted notification to deliver.
type NotificationDeliverPayload struct {
	NotificationID string `json:"notification_id"`
	CaseID         string `json:"case_id"`
	RecipientID    string `json:"recipient_id"`
}

// ArbitrationRetryPayload re-runs a failed ledger application.
type ArbitrationRetryPayload struct {
	ArbitrationID string `json:"arbitration_id"`
	CaseID        string `json:"case_id"`
}

// TransferRetryPayload re-attempts a provider payout whose gateway transfer
// failed after the hold row was already flipped. The amount travels in the
// payload because a split release pays out less than the hold total.
type TransferRetryPayload struct {
	HoldID      string `json:"hold_id"`
	CaseID      string `json:"case_id"`
	ProviderID  string `json:"provider_id"`
	AmountCents int64  `json:"amount_cents"`
	Reference   string `json:"reference"`
}

// HoldRetryPayload re-attempts the withholding that failed at claim creation.
type HoldRetryPayload struct {
	CaseID string `json:"case_id"`
}

// Enqueuer wraps the asynq client. Enqueue failures are logged, never fatal:
// a dead queue must not block the state transition that produced the task.
type Enqueuer struct {
	client *asynq.Client
	logger *zap.Logger
}

// NewEnqueuer builds an enqueuer over a redis-backed asynq client.
func NewEnqueuer(redisAddr, redisPassword string, redisDB int, logger *zap.Logger) *Enqueuer {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
	return &Enqueuer{client: client, logger: logger}
}

// Close releases the underlying client.
func (e *Enqueuer) Close() {
	if e != nil && e.client != nil {
		_ = e.client.Close()
	}
}

// EnqueueNotificationDeliver schedules out-of-band delivery of a notification.
func (e *Enqueuer) EnqueueNotificationDeliver(payload NotificationDeliverPayload) {
	e.enqueue(TypeNotificationDeliver, payload, asynq.MaxRetry(5))
}

// EnqueueArbitrationRetry schedules a retry of a failed ledger application.
func (e *Enqueuer) EnqueueArbitrationRetry(payload ArbitrationRetryPayload) {
	e.enqueue(TypeArbitrationRetry, payload, asynq.MaxRetry(10), asynq.ProcessIn(time.Minute))
}

// EnqueueTransferRetry schedules a retry of a failed provider payout.
func (e *Enqueuer) EnqueueTransferRetry(payload TransferRetryPayload) {
	e.enqueue(TypeTransferRetry, payload, asynq.MaxRetry(10), asynq.ProcessIn(time.Minute))
}

// EnqueueHoldRetry schedules a retry of a failed hold application.
func (e *Enqueuer) EnqueueHoldRetry(payload HoldRetryPayload) {
	e.enqueue(TypeHoldRetry, payload, asynq.MaxRetry(10), asynq.ProcessIn(time.Minute))
}

func (e *Enqueuer) enqueue(taskType string, payload any, opts ...asynq.Option) {
	if e == nil || e.client == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error("marshal task payload", zap.String("task", taskType), zap.Error(err))
		return
	}
	if _, err := e.client.Enqueue(asynq.NewTask(taskType, data), opts...); err != nil {
		e.logger.Warn("enqueue task failed", zap.String("task", taskType), zap.Error(err))
	}
}
