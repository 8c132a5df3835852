package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	eventrepo "ticketing-backend/internal/domains/event/repository"
	"ticketing-backend/internal/domains/ticket/model"
	"ticketing-backend/internal/domains/ticket/repository"
	"ticketing-backend/internal/shared"
	"ticketing-backend/internal/shared/audit"
	"ticketing-backend/pkg/clock"
	"ticketing-backend/pkg/logger"
	"ticketing-backend/pkg/qrtoken"
)

type gateValidator struct {
	tickets repository.TicketRepository
	events  eventrepo.Repository
	codec   *qrtoken.Codec
	clock   clock.Clock
	audit   audit.Emitter
}

func NewGateValidator(
	tickets repository.TicketRepository,
	events eventrepo.Repository,
	codec *qrtoken.Codec,
	clk clock.Clock,
	emitter audit.Emitter,
) GateValidator {
	return &gateValidator{
		tickets: tickets,
		events:  events,
		codec:   codec,
		clock:   clk,
		audit:   emitter,
	}
}

// Scan runs the gate decision pipeline. Every check short-circuits:
// signature, existence, event match, scanner assignment, revocation
// state, then the atomic check-in. Only database errors return err;
// every business outcome is a ScanResult.
func (s *gateValidator) Scan(ctx context.Context, req model.ScanRequest, actor shared.Actor) (*model.ScanResult, error) {
	// Step 1: cryptographic check, no DB touched for forged tokens
	if _, err := s.codec.Verify(req.QRCode); err != nil {
		return &model.ScanResult{Status: model.ScanInvalid, Reason: err.Error()}, nil
	}

	// Step 2: look up by the full token string
	ticket, err := s.tickets.GetByQRCode(ctx, req.QRCode)
	if err != nil {
		if errors.Is(err, model.ErrTicketNotFound) {
			return &model.ScanResult{Status: model.ScanNotFound, Reason: "ticket not found"}, nil
		}
		return nil, fmt.Errorf("scan lookup: %w", err)
	}

	// Step 3: gate claims a specific event
	if claimed := req.ClaimedEventID(); claimed != nil && *claimed != ticket.EventID {
		return &model.ScanResult{
			Status: model.ScanWrongEvent,
			Reason: fmt.Sprintf("ticket belongs to event %s", ticket.EventID),
		}, nil
	}

	// Step 4: validators may only scan events they are assigned to
	if actor.Role == shared.RoleValidator {
		event, err := s.events.GetByID(ctx, ticket.EventID)
		if err != nil {
			return nil, fmt.Errorf("scan event lookup: %w", err)
		}
		if !event.IsValidatorAssigned(actor.UserID) {
			return &model.ScanResult{
				Status: model.ScanNotAssigned,
				Reason: "validator is not assigned to this event",
			}, nil
		}
	}

	// Step 5: revocation state
	switch ticket.Status {
	case model.StatusUsed:
		return &model.ScanResult{
			Status: model.ScanAlreadyUsed,
			Reason: alreadyUsedReason(ticket),
			Ticket: holderSummary(ticket),
		}, nil
	case model.StatusCancelled, model.StatusTransferred:
		return &model.ScanResult{Status: model.ScanCancelled, Reason: "ticket is no longer valid"}, nil
	}

	// Step 6: atomic single-use claim
	now := s.clock.Now()
	won, err := s.tickets.CheckIn(ctx, ticket.ID, actor.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("scan check-in: %w", err)
	}
	if !won {
		// Another scanner claimed it between our read and the update.
		return &model.ScanResult{
			Status: model.ScanRaceCondition,
			Reason: "ticket was checked in by another scanner",
		}, nil
	}

	ticket.Status = model.StatusUsed
	ticket.CheckedInAt = &now
	scanner := actor.UserID
	ticket.CheckedInBy = &scanner

	s.audit.Emit(ctx, shared.AuditEventPayload{
		Action:  "ticket.checked_in",
		ActorID: actor.UserID.String(),
		Detail: map[string]interface{}{
			"ticketId": ticket.ID.String(),
			"eventId":  ticket.EventID.String(),
			"orderId":  ticket.OrderID.String(),
		},
		At: now,
	})
	logger.Info("ticket checked in", map[string]interface{}{
		"ticketId":  ticket.ID.String(),
		"eventId":   ticket.EventID.String(),
		"scannerId": actor.UserID.String(),
	})

	// Step 7: the winning scan carries the holder summary
	return &model.ScanResult{Status: model.ScanValid, Ticket: holderSummary(ticket)}, nil
}

func alreadyUsedReason(t *model.Ticket) string {
	if t.CheckedInAt != nil {
		return fmt.Sprintf("ticket already checked in at %s", t.CheckedInAt.UTC().Format("2006-01-02 15:04:05"))
	}
	return "ticket already checked in"
}

func holderSummary(t *model.Ticket) *model.TicketHolder {
	return &model.TicketHolder{
		TicketID:    t.ID,
		OrderID:     t.OrderID,
		UserID:      t.UserID,
		TierName:    t.TierName,
		CheckedInAt: t.CheckedInAt,
		CheckedInBy: t.CheckedInBy,
	}
}

type ticketService struct {
	tickets repository.TicketRepository
}

func NewTicketService(tickets repository.TicketRepository) TicketService {
	return &ticketService{tickets: tickets}
}

func (s *ticketService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Ticket, error) {
	return s.tickets.ListByUser(ctx, userID)
}

func (s *ticketService) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*model.Ticket, error) {
	return s.tickets.ListByOrder(ctx, orderID)
}
