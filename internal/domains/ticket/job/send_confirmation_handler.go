package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"ticketing-backend/internal/infrastructure/email"
	"ticketing-backend/internal/shared"
	"ticketing-backend/pkg/logger"
)

// SendConfirmationHandler delivers the purchase confirmation email
// after a payment completes. Enqueued by the payment engine; failures
// are retried by asynq, never by the payment path.
type SendConfirmationHandler struct {
	emailService email.EmailService
}

func NewSendConfirmationHandler(emailService email.EmailService) *SendConfirmationHandler {
	return &SendConfirmationHandler{emailService: emailService}
}

func (h *SendConfirmationHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload shared.TicketConfirmationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Error("failed to unmarshal ticket confirmation payload", err)
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if payload.Email == "" {
		// Nothing to deliver to; drop instead of retrying forever.
		logger.Warn("ticket confirmation without recipient, skipping", map[string]interface{}{
			"orderId": payload.OrderID,
		})
		return nil
	}

	if err := h.emailService.SendTicketConfirmation(ctx, email.TicketConfirmationData{
		Email:       payload.Email,
		EventName:   payload.EventName,
		OrderID:     payload.OrderID,
		TicketIDs:   payload.TicketIDs,
		AmountMinor: payload.AmountMinor,
		Currency:    payload.Currency,
	}); err != nil {
		return fmt.Errorf("send ticket confirmation: %w", err)
	}

	logger.Info("ticket confirmation sent", map[string]interface{}{
		"orderId": payload.OrderID,
		"tickets": len(payload.TicketIDs),
	})
	return nil
}
