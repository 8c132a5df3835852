package service

import (
	"context"

	"github.com/google/uuid"

	"ticketing-backend/internal/domains/event/model"
)

// EventService is the read side the purchase path consumes. The
// authoritative availability check always happens later under the
// completion row lock; this layer only rejects obviously invalid
// purchases early and keeps hot events out of the database.
type EventService interface {
	// GetPurchasableEvent returns the event when it is published and
	// not soft-deleted; otherwise model.ErrEventNotPurchasable (or
	// model.ErrEventNotFound).
	GetPurchasableEvent(ctx context.Context, eventID uuid.UUID) (*model.Event, error)

	// GetEvent returns the event regardless of purchasability. Used by
	// the gate validator for validator-assignment checks.
	GetEvent(ctx context.Context, eventID uuid.UUID) (*model.Event, error)

	// InvalidateSnapshot drops the cached snapshot after a completion
	// changed the tier counters.
	InvalidateSnapshot(ctx context.Context, eventID uuid.UUID)
}
