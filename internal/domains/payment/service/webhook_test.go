package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ticketing-backend/internal/domains/payment/model"
	"ticketing-backend/internal/shared/audit"
	"ticketing-backend/pkg/clock"
)

func newWebhookFixture() (*mockEngine, *mockGateway, WebhookProcessor) {
	engine := &mockEngine{}
	gw := &mockGateway{}
	p := NewWebhookProcessor(engine, gw, clock.NewFixed(testNow), audit.NopEmitter{})
	return engine, gw, p
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	engine, gw, p := newWebhookFixture()
	body := []byte(`{"event":"charge.success","data":{"reference":"order_ref_1"}}`)

	gw.On("VerifySignature", body, "bad-sig").Return(false)

	result := p.Ingest(context.Background(), body, "bad-sig")

	assert.False(t, result.Success)
	assert.Equal(t, "Invalid signature", result.Message)
	// Nothing dispatches on a forged delivery.
	engine.AssertNotCalled(t, "VerifyAndComplete", mock.Anything, mock.Anything)
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	_, gw, p := newWebhookFixture()
	body := []byte(`{not json`)

	gw.On("VerifySignature", body, "sig").Return(true)

	result := p.Ingest(context.Background(), body, "sig")
	assert.False(t, result.Success)
	assert.Equal(t, "Malformed body", result.Message)
}

func TestWebhookChargeSuccessSettlesThroughVerify(t *testing.T) {
	engine, gw, p := newWebhookFixture()
	body := []byte(`{"event":"charge.success","data":{"reference":"order_ref_1","status":"success","amount":10000}}`)

	gw.On("VerifySignature", body, "sig").Return(true)
	// The webhook body is a hint; the verify record settles.
	engine.On("VerifyAndComplete", mock.Anything, "order_ref_1").Return(&model.CompleteResult{}, nil)

	result := p.Ingest(context.Background(), body, "sig")

	assert.True(t, result.Success)
	assert.True(t, result.Handled)
	engine.AssertExpectations(t)
}

func TestWebhookChargeSuccessCompletionFailureStillAcks(t *testing.T) {
	engine, gw, p := newWebhookFixture()
	body := []byte(`{"event":"charge.success","data":{"reference":"order_ref_1"}}`)

	gw.On("VerifySignature", body, "sig").Return(true)
	engine.On("VerifyAndComplete", mock.Anything, "order_ref_1").Return(nil, model.ErrTransactionNotFound)

	result := p.Ingest(context.Background(), body, "sig")

	// Success=true keeps the response 2xx so the gateway stops retrying.
	assert.True(t, result.Success)
	assert.False(t, result.Handled)
}

func TestWebhookChargeFailedMarksTransactionFailed(t *testing.T) {
	engine, gw, p := newWebhookFixture()
	body := []byte(`{"event":"charge.failed","data":{"reference":"order_ref_1","message":"insufficient funds"}}`)
	txn := &model.Transaction{ID: uuid.New(), Status: model.StatusProcessing}

	gw.On("VerifySignature", body, "sig").Return(true)
	engine.On("GetByReference", mock.Anything, "order_ref_1").Return(txn, nil)
	engine.On("Fail", mock.Anything, txn.ID, "insufficient funds", model.FailureDeclined,
		mock.Anything).Return(txn, nil)

	result := p.Ingest(context.Background(), body, "sig")

	assert.True(t, result.Success)
	assert.True(t, result.Handled)
	engine.AssertExpectations(t)
}

func TestWebhookChargeFailedToleratesTransitionRace(t *testing.T) {
	engine, gw, p := newWebhookFixture()
	body := []byte(`{"event":"charge.failed","data":{"reference":"order_ref_1"}}`)
	txn := &model.Transaction{ID: uuid.New(), Status: model.StatusCompleted}

	gw.On("VerifySignature", body, "sig").Return(true)
	engine.On("GetByReference", mock.Anything, "order_ref_1").Return(txn, nil)
	// The charge already completed; the fail transition bounces.
	engine.On("Fail", mock.Anything, txn.ID, "charge failed", model.FailureDeclined,
		mock.Anything).Return(nil, model.NewInvalidTransitionError(model.StatusCompleted, model.StatusFailed))

	result := p.Ingest(context.Background(), body, "sig")

	assert.True(t, result.Success)
	assert.True(t, result.Handled)
}

func TestWebhookChargeMissingReference(t *testing.T) {
	engine, gw, p := newWebhookFixture()
	body := []byte(`{"event":"charge.success","data":{"status":"success"}}`)

	gw.On("VerifySignature", body, "sig").Return(true)

	result := p.Ingest(context.Background(), body, "sig")

	assert.False(t, result.Success)
	assert.Equal(t, "Missing reference", result.Message)
	engine.AssertNotCalled(t, "VerifyAndComplete", mock.Anything, mock.Anything)
}

func TestWebhookTransferEventsAreAuditOnly(t *testing.T) {
	engine, gw, p := newWebhookFixture()

	for _, event := range []string{
		model.WebhookTransferSuccess,
		model.WebhookTransferFailed,
		model.WebhookRefundProcessed,
	} {
		body := []byte(`{"event":"` + event + `","data":{}}`)
		gw.On("VerifySignature", body, "sig").Return(true)

		result := p.Ingest(context.Background(), body, "sig")
		assert.True(t, result.Success, event)
		assert.True(t, result.Handled, event)
	}
	engine.AssertNotCalled(t, "VerifyAndComplete", mock.Anything, mock.Anything)
	engine.AssertNotCalled(t, "Fail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookUnknownEventIsAcknowledgedUnhandled(t *testing.T) {
	_, gw, p := newWebhookFixture()
	body := []byte(`{"event":"subscription.create","data":{}}`)

	gw.On("VerifySignature", body, "sig").Return(true)

	result := p.Ingest(context.Background(), body, "sig")

	assert.True(t, result.Success)
	assert.False(t, result.Handled)
}

func TestWebhookRecoversFromHandlerPanic(t *testing.T) {
	engine, gw, p := newWebhookFixture()
	body := []byte(`{"event":"charge.success","data":{"reference":"order_ref_1"}}`)

	gw.On("VerifySignature", body, "sig").Return(true)
	engine.On("VerifyAndComplete", mock.Anything, "order_ref_1").Run(func(mock.Arguments) {
		panic(errors.New("boom"))
	}).Return(nil, nil)

	result := p.Ingest(context.Background(), body, "sig")

	// The delivery is still acknowledged; verify settles it later.
	assert.True(t, result.Success)
	assert.False(t, result.Handled)
	assert.Equal(t, "internal error", result.Message)
}
