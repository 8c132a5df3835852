package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ticketing-backend/internal/domains/payment/model"
)

// TxRunner runs a function inside one database transaction. The
// engine depends on this instead of the pool so its logic can be
// exercised without a live database.
type TxRunner interface {
	InTx(ctx context.Context, fn func(pgx.Tx) error) error
}

// CompletionData is everything Complete persists on the transaction
// row besides the status flip.
type CompletionData struct {
	GatewayTransactionID string
	GatewayChannel       string
	GatewayAuthMeta      map[string]interface{}
	GatewayResponse      map[string]interface{}
	GatewayFees          int64
	Splits               model.Splits
}

// FailureData is what Fail stamps onto the row. NextRetryAt is nil
// for business-terminal failures.
type FailureData struct {
	Reason      string
	Code        string
	Details     map[string]interface{}
	NextRetryAt *time.Time
}

type TransactionRepository interface {
	// CreateWithTx inserts the ledger row. A 23505 on idempotency_key
	// maps to model.ErrDuplicateIdempotencyKey.
	CreateWithTx(ctx context.Context, tx pgx.Tx, txn *model.Transaction) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*model.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*model.Transaction, error)

	GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Transaction, error)
	GetByReferenceForUpdateWithTx(ctx context.Context, tx pgx.Tx, reference string) (*model.Transaction, error)

	// UpdateStatusWithTx flips status and stamps the matching
	// timestamp column in the same UPDATE.
	UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error

	MarkCompletedWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, data CompletionData) error
	MarkFailedWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, data FailureData) error

	// MarkRetryingWithTx moves failed→processing bookkeeping: bumps
	// retry_count, stamps last_retry_at, swaps the gateway reference
	// and clears next_retry_at.
	MarkRetryingWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, reference string, at time.Time) error

	// ApplyRefundWithTx bumps total_refunded and sets the new status.
	ApplyRefundWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64, newStatus string) error

	ListByUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*model.Transaction, error)

	// ListDueRetries feeds the cron scan: failed rows whose
	// next_retry_at has passed and retries remain.
	ListDueRetries(ctx context.Context, now time.Time, limit int) ([]*model.Transaction, error)

	// ListStaleProcessing finds rows stuck in processing since before
	// the cutoff.
	ListStaleProcessing(ctx context.Context, cutoff time.Time, limit int) ([]*model.Transaction, error)
}

type RefundRepository interface {
	InsertWithTx(ctx context.Context, tx pgx.Tx, refund *model.Refund) error
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*model.Refund, error)
}

type OutboxRepository interface {
	InsertWithTx(ctx context.Context, tx pgx.Tx, entry *model.RefundOutboxEntry) error
	ListUnprocessed(ctx context.Context, limit int) ([]*model.RefundOutboxEntry, error)
}
