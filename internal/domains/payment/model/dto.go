package model

import (
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	ordermodel "ticketing-backend/internal/domains/order/model"
)

// =====================================================
// REQUESTS
// =====================================================

// PurchaseRequest starts a ticket purchase. The idempotency key
// arrives in the Idempotency-Key header, not the body.
type PurchaseRequest struct {
	EventID  string `json:"eventId"`
	TierID   string `json:"tierId"`
	Quantity int    `json:"quantity"`
}

func (r PurchaseRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.EventID, validation.Required, is.UUID),
		validation.Field(&r.TierID, validation.Required, is.UUID),
		validation.Field(&r.Quantity, validation.Required, validation.Min(ordermodel.MinQuantity), validation.Max(ordermodel.MaxQuantity)),
	)
}

// VerifyRequest asks the engine to settle a pending payment against
// the gateway's record.
type VerifyRequest struct {
	Reference string `json:"reference"`
}

func (r VerifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Reference, validation.Required, validation.Length(1, 255)),
	)
}

// RefundRequestDTO is the admin refund body. Amount nil means refund
// the full net refundable.
type RefundRequestDTO struct {
	Amount *int64 `json:"amount,omitempty"`
	Reason string `json:"reason"`
}

func (r RefundRequestDTO) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Reason, validation.Required, validation.Length(1, 500)),
	)
}

// ClientMeta is the request fingerprint recorded on the transaction.
type ClientMeta struct {
	IP        string
	UserAgent string
	Email     string
}

// =====================================================
// RESULTS
// =====================================================

// InitiateResult is the purchase outcome. IsIdempotent marks replays:
// the gateway was not called and PaymentURL may be empty.
type InitiateResult struct {
	Order          *ordermodel.Order `json:"order"`
	Transaction    *Transaction      `json:"transaction"`
	PaymentURL     string            `json:"paymentUrl,omitempty"`
	IdempotencyKey string            `json:"idempotencyKey"`
	IsIdempotent   bool              `json:"isIdempotent"`
}

// CompleteResult is returned by Complete and by replayed completions.
type CompleteResult struct {
	Transaction *Transaction      `json:"transaction"`
	Order       *ordermodel.Order `json:"order"`
	TicketIDs   []string          `json:"ticketIds"`

	// AlreadyCompleted marks the idempotent short-circuit: a prior
	// call minted the tickets, this one only read them back.
	AlreadyCompleted bool `json:"alreadyCompleted"`
}

// RetryResult is returned by a successful manual or scheduled retry.
type RetryResult struct {
	Transaction *Transaction `json:"transaction"`
	PaymentURL  string       `json:"paymentUrl"`
}

// =====================================================
// WEBHOOK WIRE TYPES
// =====================================================

// WebhookEnvelope is the outer gateway webhook body. Data stays raw
// until the event type picks a schema.
type WebhookEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WebhookChargeData is the data block of charge.* events.
type WebhookChargeData struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Message   string `json:"message"`
	GatewayID int64  `json:"id"`
}

// WebhookResult is what the processor reports back to the HTTP layer.
// The endpoint answers 200 regardless.
type WebhookResult struct {
	Success bool   `json:"success"`
	Handled bool   `json:"handled"`
	Message string `json:"message,omitempty"`
}
