package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"ticketing-backend/internal/domains/payment/service"
	"ticketing-backend/pkg/logger"
)

// RetryDueHandler is the cron entry point for payment:retry_due. One
// pass scans retry-due failed transactions and re-initializes them
// with bounded concurrency inside the engine.
type RetryDueHandler struct {
	engine service.TransactionEngine
}

func NewRetryDueHandler(engine service.TransactionEngine) *RetryDueHandler {
	return &RetryDueHandler{engine: engine}
}

func (h *RetryDueHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	if err := h.engine.ScanDueRetries(ctx); err != nil {
		return fmt.Errorf("retry scan: %w", err)
	}
	return nil
}

// ExpireStaleHandler is the cron entry point for
// payment:expire_processing. Transactions stuck in processing beyond
// the stale window are failed with reason "timeout".
type ExpireStaleHandler struct {
	engine service.TransactionEngine
}

func NewExpireStaleHandler(engine service.TransactionEngine) *ExpireStaleHandler {
	return &ExpireStaleHandler{engine: engine}
}

func (h *ExpireStaleHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	logger.Debug("expiring stale processing transactions")
	if err := h.engine.ExpireStaleProcessing(ctx); err != nil {
		return fmt.Errorf("expire stale processing: %w", err)
	}
	return nil
}
