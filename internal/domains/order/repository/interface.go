package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ticketing-backend/internal/domains/order/model"
)

// CompletionUpdate carries everything the completion boundary writes
// onto the order in one statement.
type CompletionUpdate struct {
	TicketIDs            []string
	SplitPlatformAmount  int64
	SplitOrganizerAmount int64
	GatewayReference     string
	GatewayTransactionID *string
	PaidAt               time.Time
}

// OrderRepository persists orders. Multi-row flows (initiate,
// complete, refund) run through the ...WithTx variants so they commit
// atomically with the transaction ledger.
type OrderRepository interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, order *model.Order) error

	GetByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error)
	GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*model.Order, error)

	// MarkCompletedWithTx flips the order to completed and writes the
	// ticket ids, splits and gateway echo fields.
	MarkCompletedWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, update CompletionUpdate) error

	// UpdatePaymentStatusWithTx moves the order to failed or refunded.
	UpdatePaymentStatusWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status string) error
}
