package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"ticketing-backend/internal/domains/payment/gateway"
	"ticketing-backend/internal/domains/payment/model"
)

// InitiateInput is the purchase command after HTTP validation.
type InitiateInput struct {
	UserID         uuid.UUID
	EventID        uuid.UUID
	TierID         uuid.UUID
	Quantity       int
	IdempotencyKey string
	Meta           model.ClientMeta
}

// TaskClient is the slice of asynq.Client the engine needs; tests
// substitute a recorder.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TransactionEngine owns the payment lifecycle. All mutating
// operations are safe to call concurrently and idempotent at the
// boundaries the gateway can replay (initiate keys, completion).
type TransactionEngine interface {
	Initiate(ctx context.Context, in InitiateInput) (*model.InitiateResult, error)

	// Complete settles a verified successful charge: counters, splits,
	// ticket minting, order flip. Replays return the existing result.
	Complete(ctx context.Context, transactionID uuid.UUID, data *gateway.VerifyData) (*model.CompleteResult, error)

	// Fail moves the transaction (and its order) to failed. No-op when
	// already failed.
	Fail(ctx context.Context, transactionID uuid.UUID, reason, code string, details map[string]interface{}) (*model.Transaction, error)

	// Refund requests money movement on the gateway and appends the
	// refund record. amount nil means the full net refundable.
	Refund(ctx context.Context, transactionID uuid.UUID, amount *int64, reason string, processedBy uuid.UUID) (*model.Transaction, error)

	// Retry re-runs gateway initialization for a failed transaction
	// with a fresh reference.
	Retry(ctx context.Context, transactionID uuid.UUID) (*model.RetryResult, error)

	// VerifyAndComplete settles a pending payment against the
	// gateway's authoritative record, keyed by gateway reference.
	VerifyAndComplete(ctx context.Context, reference string) (*model.CompleteResult, error)

	GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*model.Transaction, error)

	// ScanDueRetries runs one cron pass over retry-due failed rows.
	ScanDueRetries(ctx context.Context) error

	// ExpireStaleProcessing fails transactions stuck in processing
	// beyond the configured window.
	ExpireStaleProcessing(ctx context.Context) error
}
