package model

import (
	"time"

	"github.com/google/uuid"
)

// Ticket statuses.
const (
	StatusValid       = "valid"
	StatusUsed        = "used"
	StatusCancelled   = "cancelled"
	StatusTransferred = "transferred"
)

// Ticket is one seat of admission. Tickets are created exclusively
// inside the payment completion transaction; the QR code holds the
// signed token string and is globally unique.
type Ticket struct {
	ID      uuid.UUID `json:"id" db:"id"`
	OrderID uuid.UUID `json:"order_id" db:"order_id"`
	EventID uuid.UUID `json:"event_id" db:"event_id"`
	UserID  uuid.UUID `json:"user_id" db:"user_id"`

	TierID   uuid.UUID `json:"tier_id" db:"tier_id"`
	TierName string    `json:"tier_name" db:"tier_name"`
	Price    int64     `json:"price" db:"price"` // minor units

	QRCode string `json:"qr_code" db:"qr_code"`
	Status string `json:"status" db:"status"`

	CheckedInAt *time.Time `json:"checked_in_at,omitempty" db:"checked_in_at"`
	CheckedInBy *uuid.UUID `json:"checked_in_by,omitempty" db:"checked_in_by"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsScannable reports whether the ticket is still eligible for
// check-in. The atomic compare-and-set in the repository is the
// authoritative gate; this is the pre-check.
func (t *Ticket) IsScannable() bool {
	return t.Status == StatusValid
}
