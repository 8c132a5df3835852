package service

import (
	"context"
	"encoding/json"
	"errors"

	"ticketing-backend/internal/domains/payment/gateway"
	"ticketing-backend/internal/domains/payment/model"
	"ticketing-backend/internal/shared"
	"ticketing-backend/internal/shared/audit"
	"ticketing-backend/pkg/clock"
	"ticketing-backend/pkg/logger"
)

// WebhookProcessor authenticates and dispatches gateway webhook
// deliveries. It always produces a result for a 2xx response: the
// gateway retries on non-2xx and the engine's idempotent boundaries
// already absorb duplicates.
type WebhookProcessor interface {
	Ingest(ctx context.Context, rawBody []byte, signature string) *model.WebhookResult
}

type webhookProcessor struct {
	engine  TransactionEngine
	gateway gateway.PaymentGateway
	clock   clock.Clock
	audit   audit.Emitter
}

func NewWebhookProcessor(engine TransactionEngine, gw gateway.PaymentGateway, clk clock.Clock, emitter audit.Emitter) WebhookProcessor {
	return &webhookProcessor{engine: engine, gateway: gw, clock: clk, audit: emitter}
}

func (p *webhookProcessor) Ingest(ctx context.Context, rawBody []byte, signature string) *model.WebhookResult {
	if !p.gateway.VerifySignature(rawBody, signature) {
		logger.Warn("webhook rejected: invalid signature", map[string]interface{}{
			"bodyBytes": len(rawBody),
		})
		return &model.WebhookResult{Success: false, Message: "Invalid signature"}
	}

	var envelope model.WebhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		logger.Error("webhook rejected: malformed body", err)
		return &model.WebhookResult{Success: false, Message: "Malformed body"}
	}

	// A handler crash must never bounce the delivery: recover, audit,
	// answer 2xx and let the gateway's own retry or the verify path
	// settle the payment.
	result := &model.WebhookResult{Success: true}
	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorWithFields("webhook handler panicked", nil, map[string]interface{}{
					"event": envelope.Event,
					"panic": r,
				})
				p.audit.Emit(ctx, shared.AuditEventPayload{
					Action: "system.error",
					Detail: map[string]interface{}{"event": envelope.Event, "panic": r},
					At:     p.clock.Now(),
				})
				result = &model.WebhookResult{Success: true, Handled: false, Message: "internal error"}
			}
		}()
		result = p.dispatch(ctx, envelope)
	}()
	return result
}

func (p *webhookProcessor) dispatch(ctx context.Context, envelope model.WebhookEnvelope) *model.WebhookResult {
	switch envelope.Event {
	case model.WebhookChargeSuccess:
		return p.handleCharge(ctx, envelope, true)
	case model.WebhookChargeFailed:
		return p.handleCharge(ctx, envelope, false)
	case model.WebhookTransferSuccess, model.WebhookTransferFailed, model.WebhookRefundProcessed:
		// Settlement notifications: audited, no state change here.
		p.audit.Emit(ctx, shared.AuditEventPayload{
			Action: "webhook." + envelope.Event,
			At:     p.clock.Now(),
		})
		return &model.WebhookResult{Success: true, Handled: true}
	default:
		logger.Info("webhook event ignored", map[string]interface{}{"event": envelope.Event})
		return &model.WebhookResult{Success: true, Handled: false}
	}
}

func (p *webhookProcessor) handleCharge(ctx context.Context, envelope model.WebhookEnvelope, success bool) *model.WebhookResult {
	var data model.WebhookChargeData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		logger.Error("webhook charge data malformed", err)
		return &model.WebhookResult{Success: false, Message: "Malformed charge data"}
	}
	if data.Reference == "" {
		return &model.WebhookResult{Success: false, Message: "Missing reference"}
	}

	if success {
		// Settle through the verify path: the webhook body is a
		// notification, the gateway's verify record is authoritative.
		if _, err := p.engine.VerifyAndComplete(ctx, data.Reference); err != nil {
			p.reportChargeError(ctx, envelope.Event, data.Reference, err)
			return &model.WebhookResult{Success: true, Handled: false, Message: "completion failed"}
		}
		return &model.WebhookResult{Success: true, Handled: true}
	}

	txn, err := p.engine.GetByReference(ctx, data.Reference)
	if err != nil {
		p.reportChargeError(ctx, envelope.Event, data.Reference, err)
		return &model.WebhookResult{Success: true, Handled: false, Message: "unknown reference"}
	}
	reason := data.Message
	if reason == "" {
		reason = "charge failed"
	}
	if _, err := p.engine.Fail(ctx, txn.ID, reason, model.FailureDeclined, nil); err != nil {
		// Already completed or already failed races are expected.
		if !errors.Is(err, model.ErrInvalidTransition) {
			p.reportChargeError(ctx, envelope.Event, data.Reference, err)
			return &model.WebhookResult{Success: true, Handled: false, Message: "fail transition rejected"}
		}
	}
	return &model.WebhookResult{Success: true, Handled: true}
}

func (p *webhookProcessor) reportChargeError(ctx context.Context, event, reference string, err error) {
	logger.ErrorWithFields("webhook charge handling failed", err, map[string]interface{}{
		"event":     event,
		"reference": reference,
	})
	p.audit.Emit(ctx, shared.AuditEventPayload{
		Action:    "system.error",
		Reference: reference,
		Detail:    map[string]interface{}{"event": event, "error": err.Error()},
		At:        p.clock.Now(),
	})
}
