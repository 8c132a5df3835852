package service

import (
	"context"

	"github.com/google/uuid"

	"ticketing-backend/internal/domains/ticket/model"
	"ticketing-backend/internal/shared"
)

// GateValidator decides scan attempts at the venue gate.
type GateValidator interface {
	// Scan verifies the token, checks revocation state and atomically
	// marks the ticket used. Under N concurrent scanners exactly one
	// call returns ScanValid.
	Scan(ctx context.Context, req model.ScanRequest, actor shared.Actor) (*model.ScanResult, error)
}

// TicketService exposes ticket reads for holders.
type TicketService interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Ticket, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*model.Ticket, error)
}
