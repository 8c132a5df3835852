package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ticketing-backend/internal/domains/event/model"
)

// Repository is the read side plus the counter writes the payment
// engine performs at the completion boundary. Event CRUD itself is
// owned by an upstream module and is not exposed here.
type Repository interface {
	// GetByID loads an event with its tiers. Soft-deleted events are
	// returned (with DeletedAt set) so callers can distinguish
	// "deleted" from "never existed".
	GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error)

	// GetForUpdateWithTx loads an event and its tiers under FOR UPDATE
	// row locks. This is the serialization point for sold-count
	// updates of every tier in the event.
	GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Event, error)

	// IncrementTierSoldWithTx bumps a tier's sold_count by quantity,
	// guarded by the tier's optimistic version on top of the caller's
	// row lock. Returns model.ErrTierVersionConflict when the version
	// check fails.
	IncrementTierSoldWithTx(ctx context.Context, tx pgx.Tx, eventID, tierID uuid.UUID, quantity, expectedVersion int) error

	// AddEventTotalsWithTx bumps total_tickets_sold and total_revenue
	// on the event row.
	AddEventTotalsWithTx(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, ticketsDelta int, revenueDelta int64) error

	// GetOrganizer reads the organizer subset the engine needs for
	// splits and subaccount routing.
	GetOrganizer(ctx context.Context, organizerID uuid.UUID) (*model.Organizer, error)
}
