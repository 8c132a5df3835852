package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ticketing-backend/internal/domains/ticket/model"
)

// TicketRepository persists tickets. Minting and cancellation run inside
// the payment engine's transaction, so those take an explicit pgx.Tx.
type TicketRepository interface {
	// InsertWithTx writes a freshly minted ticket. A unique violation on
	// qr_code is mapped to model.ErrDuplicateQRCode.
	InsertWithTx(ctx context.Context, tx pgx.Tx, ticket *model.Ticket) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
	GetByQRCode(ctx context.Context, qrCode string) (*model.Ticket, error)

	// CountActiveForUserTier counts a user's non-cancelled tickets
	// (valid, used, transferred) in a tier, backing the per-user
	// purchase limit.
	CountActiveForUserTier(ctx context.Context, userID, eventID, tierID uuid.UUID) (int, error)

	// CheckIn flips a ticket from valid to used in a single guarded
	// UPDATE. Returns false when another scanner won the race.
	CheckIn(ctx context.Context, ticketID, scannerID uuid.UUID, at time.Time) (bool, error)

	// CancelByOrderWithTx marks all non-used tickets of an order
	// cancelled. Used when a completed payment is fully refunded.
	CancelByOrderWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int, error)

	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*model.Ticket, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Ticket, error)
}
