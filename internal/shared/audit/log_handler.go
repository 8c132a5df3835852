package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"ticketing-backend/internal/shared"
)

// LogHandler is the worker-side consumer of audit:event tasks. Events
// are written as structured log output; durable audit storage and
// search live outside this service.
type LogHandler struct{}

func NewLogHandler() *LogHandler {
	return &LogHandler{}
}

func (h *LogHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var event shared.AuditEventPayload
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		return fmt.Errorf("unmarshal audit event: %w", err)
	}

	log.Info().
		Str("audit", event.Action).
		Str("transactionId", event.TransactionID).
		Str("reference", event.Reference).
		Str("actorId", event.ActorID).
		Time("at", event.At).
		Fields(event.Detail).
		Msg("audit event")

	return nil
}
