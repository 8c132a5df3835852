package audit

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"ticketing-backend/internal/shared"
	"ticketing-backend/pkg/logger"
)

// Emitter records audit events for payment state changes, webhook
// receipts and gate scans. Emission is best effort: an audit failure
// must never fail the operation being audited.
type Emitter interface {
	Emit(ctx context.Context, event shared.AuditEventPayload)
}

type asynqEmitter struct {
	client *asynq.Client
}

// NewAsynqEmitter returns an Emitter that enqueues audit events onto
// the low-priority queue for the worker to persist.
func NewAsynqEmitter(client *asynq.Client) Emitter {
	return &asynqEmitter{client: client}
}

func (e *asynqEmitter) Emit(ctx context.Context, event shared.AuditEventPayload) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("failed to marshal audit event", err)
		return
	}

	task := asynq.NewTask(shared.TypeAuditEvent, payload)
	if _, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(shared.QueueLow),
		asynq.MaxRetry(3),
	); err != nil {
		logger.ErrorWithFields("failed to enqueue audit event", err, map[string]interface{}{
			"action":        event.Action,
			"transactionId": event.TransactionID,
		})
	}
}

// NopEmitter discards all events. Used in tests and in the worker's
// own audit handler to avoid re-entrant enqueues.
type NopEmitter struct{}

func (NopEmitter) Emit(ctx context.Context, event shared.AuditEventPayload) {}
