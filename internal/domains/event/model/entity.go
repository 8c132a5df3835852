package model

import (
	"time"

	"github.com/google/uuid"
)

// Event lifecycle statuses.
const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
	EventStatusCancelled = "cancelled"
	EventStatusCompleted = "completed"
)

// DefaultMaxPerUser caps how many tickets of a tier one buyer can hold
// when the tier does not specify its own limit.
const DefaultMaxPerUser = 4

// TicketTier is one price band inside an event. Tiers are normalized
// into their own table with a (event_id, id) compound key; sold_count
// updates go through the parent event's row lock plus a version CAS.
type TicketTier struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	EventID    uuid.UUID  `json:"event_id" db:"event_id"`
	Name       string     `json:"name" db:"name"`
	Price      int64      `json:"price" db:"price"` // minor units
	Quantity   int        `json:"quantity" db:"quantity"`
	SoldCount  int        `json:"sold_count" db:"sold_count"`
	MaxPerUser int        `json:"max_per_user" db:"max_per_user"`
	SaleStart  *time.Time `json:"sale_start,omitempty" db:"sale_start"`
	SaleEnd    *time.Time `json:"sale_end,omitempty" db:"sale_end"`
	Version    int        `json:"-" db:"version"`
}

// Available returns the number of unsold seats in the tier.
func (t *TicketTier) Available() int {
	return t.Quantity - t.SoldCount
}

// PerUserLimit returns the tier's per-buyer cap, falling back to
// DefaultMaxPerUser for rows stored without an explicit limit.
func (t *TicketTier) PerUserLimit() int {
	if t.MaxPerUser <= 0 {
		return DefaultMaxPerUser
	}
	return t.MaxPerUser
}

// OnSaleAt reports whether the tier's sale window is open. A nil bound
// means the window is open on that side.
func (t *TicketTier) OnSaleAt(now time.Time) bool {
	if t.SaleStart != nil && now.Before(*t.SaleStart) {
		return false
	}
	if t.SaleEnd != nil && now.After(*t.SaleEnd) {
		return false
	}
	return true
}

type Event struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	OrganizerID uuid.UUID    `json:"organizer_id" db:"organizer_id"`
	Status      string       `json:"status" db:"status"`
	Title       string       `json:"title" db:"title"`
	EventDate   time.Time    `json:"event_date" db:"event_date"`
	Tiers       []TicketTier `json:"ticket_tiers"`

	TotalTicketsSold int   `json:"total_tickets_sold" db:"total_tickets_sold"`
	TotalRevenue     int64 `json:"total_revenue" db:"total_revenue"`

	// ValidatorIDs are the user ids allowed to scan tickets for this
	// event when their role is "validator".
	ValidatorIDs []string `json:"validator_ids" db:"validator_ids"`

	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// IsPurchasable reports whether tickets for the event can be sold.
// Soft-deleted events are never purchasable regardless of status.
func (e *Event) IsPurchasable() bool {
	return e.Status == EventStatusPublished && e.DeletedAt == nil
}

// TierByID locates a tier inside the event. Returns nil when absent.
func (e *Event) TierByID(tierID uuid.UUID) *TicketTier {
	for i := range e.Tiers {
		if e.Tiers[i].ID == tierID {
			return &e.Tiers[i]
		}
	}
	return nil
}

// IsValidatorAssigned reports whether the given user may scan tickets
// for this event as a validator.
func (e *Event) IsValidatorAssigned(userID uuid.UUID) bool {
	id := userID.String()
	for _, v := range e.ValidatorIDs {
		if v == id {
			return true
		}
	}
	return false
}

// Organizer is the subset of the organizer record the engine reads:
// where to route their revenue share and what the platform keeps.
// Ownership of the full record lives in the upstream user module.
type Organizer struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	SubaccountCode     *string   `json:"subaccount_code,omitempty" db:"subaccount_code"`
	PlatformFeePercent int       `json:"platform_fee_percent" db:"platform_fee_percent"`
}

// OrganizerPercent returns the organizer's revenue share in percent.
func (o *Organizer) OrganizerPercent() int {
	return 100 - o.PlatformFeePercent
}
