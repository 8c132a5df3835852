package model

import (
	"time"

	"github.com/google/uuid"
)

// Order payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Quantity bounds per order. One order buys [1,10] seats of a single
// tier; nothing finer grained than the whole order can be cancelled
// or refunded.
const (
	MinQuantity = 1
	MaxQuantity = 10
)

// Order is the buyer's intent: one tier, one quantity, one payment.
// TicketIDs stays empty until the payment completes; the completion
// transition populates it in the same database transaction that mints
// the tickets.
type Order struct {
	ID      uuid.UUID `json:"id" db:"id"`
	UserID  uuid.UUID `json:"user_id" db:"user_id"`
	EventID uuid.UUID `json:"event_id" db:"event_id"`

	TierID   uuid.UUID `json:"tier_id" db:"tier_id"`
	TierName string    `json:"tier_name" db:"tier_name"`
	Quantity int       `json:"quantity" db:"quantity"`

	UnitPrice   int64 `json:"unit_price" db:"unit_price"`     // minor units
	TotalAmount int64 `json:"total_amount" db:"total_amount"` // unit_price * quantity

	PaymentStatus string   `json:"payment_status" db:"payment_status"`
	TicketIDs     []string `json:"ticket_ids" db:"ticket_ids"`

	SplitPlatformAmount  int64 `json:"split_platform_amount" db:"split_platform_amount"`
	SplitOrganizerAmount int64 `json:"split_organizer_amount" db:"split_organizer_amount"`

	// Gateway echo fields, copied from the transaction on completion.
	GatewayReference     *string    `json:"gateway_reference,omitempty" db:"gateway_reference"`
	GatewayTransactionID *string    `json:"gateway_transaction_id,omitempty" db:"gateway_transaction_id"`
	PaidAt               *time.Time `json:"paid_at,omitempty" db:"paid_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsPending reports whether the order still awaits payment.
func (o *Order) IsPending() bool {
	return o.PaymentStatus == PaymentStatusPending
}

// IsCompleted reports whether the order's payment completed.
func (o *Order) IsCompleted() bool {
	return o.PaymentStatus == PaymentStatusCompleted
}

// ValidQuantity reports whether q is inside the per-order bounds.
func ValidQuantity(q int) bool {
	return q >= MinQuantity && q <= MaxQuantity
}
