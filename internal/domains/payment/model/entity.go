package model

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is the payment ledger row. Amounts are minor units.
// Exactly one Transaction exists per Order.
type Transaction struct {
	ID             uuid.UUID `json:"id" db:"id"`
	IdempotencyKey string    `json:"idempotency_key" db:"idempotency_key"`
	Status         string    `json:"status" db:"status"`

	UserID  uuid.UUID `json:"user_id" db:"user_id"`
	OrderID uuid.UUID `json:"order_id" db:"order_id"`
	EventID uuid.UUID `json:"event_id" db:"event_id"`

	Amount   int64  `json:"amount" db:"amount"`
	Currency string `json:"currency" db:"currency"`

	GatewayProvider      string                 `json:"gateway_provider" db:"gateway_provider"`
	GatewayReference     string                 `json:"gateway_reference" db:"gateway_reference"`
	GatewayTransactionID *string                `json:"gateway_transaction_id,omitempty" db:"gateway_transaction_id"`
	GatewayChannel       *string                `json:"gateway_channel,omitempty" db:"gateway_channel"`
	GatewayAuthMeta      map[string]interface{} `json:"gateway_auth_meta,omitempty" db:"gateway_auth_meta"`
	GatewayResponse      map[string]interface{} `json:"gateway_response,omitempty" db:"gateway_response"`
	GatewayFees          int64                  `json:"gateway_fees" db:"gateway_fees"`

	SplitPlatformAmount  int64   `json:"split_platform_amount" db:"split_platform_amount"`
	SplitOrganizerAmount int64   `json:"split_organizer_amount" db:"split_organizer_amount"`
	SplitSubaccountCode  *string `json:"split_subaccount_code,omitempty" db:"split_subaccount_code"`
	SplitFees            int64   `json:"split_fees" db:"split_fees"`

	RetryCount  int        `json:"retry_count" db:"retry_count"`
	MaxRetries  int        `json:"max_retries" db:"max_retries"`
	LastRetryAt *time.Time `json:"last_retry_at,omitempty" db:"last_retry_at"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty" db:"next_retry_at"`

	FailureReason  *string                `json:"failure_reason,omitempty" db:"failure_reason"`
	FailureCode    *string                `json:"failure_code,omitempty" db:"failure_code"`
	FailureDetails map[string]interface{} `json:"failure_details,omitempty" db:"failure_details"`

	TotalRefunded int64 `json:"total_refunded" db:"total_refunded"`

	InitiatedAt  time.Time  `json:"initiated_at" db:"initiated_at"`
	ProcessingAt *time.Time `json:"processing_at,omitempty" db:"processing_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	FailedAt     *time.Time `json:"failed_at,omitempty" db:"failed_at"`

	MetaIP        string `json:"meta_ip,omitempty" db:"meta_ip"`
	MetaUserAgent string `json:"meta_user_agent,omitempty" db:"meta_user_agent"`
	MetaEmail     string `json:"meta_email,omitempty" db:"meta_email"`
	MetaTierName  string `json:"meta_tier_name" db:"meta_tier_name"`
	MetaQuantity  int    `json:"meta_quantity" db:"meta_quantity"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CanTransitionTo checks the state machine without constructing an
// error. Use ValidateTransition when the caller needs the error.
func (t *Transaction) CanTransitionTo(status string) bool {
	return ValidateTransition(t.Status, status) == nil
}

// NetRefundable is what can still be refunded.
func (t *Transaction) NetRefundable() int64 {
	return t.Amount - t.TotalRefunded
}

// IsRefundable reports whether any refund can be attempted at all.
func (t *Transaction) IsRefundable() bool {
	return (t.Status == StatusCompleted || t.Status == StatusPartiallyRefunded) && t.NetRefundable() > 0
}

// CanRetry reports whether the retry path is open.
func (t *Transaction) CanRetry() bool {
	return t.Status == StatusFailed && t.RetryCount < t.MaxRetries
}

// Refund is one append-only row in transaction_refunds.
type Refund struct {
	ID              uuid.UUID `json:"id" db:"id"`
	TransactionID   uuid.UUID `json:"transaction_id" db:"transaction_id"`
	Amount          int64     `json:"amount" db:"amount"`
	Reason          string    `json:"reason" db:"reason"`
	ProcessedBy     uuid.UUID `json:"processed_by" db:"processed_by"`
	ProcessedAt     time.Time `json:"processed_at" db:"processed_at"`
	GatewayRefundID *string   `json:"gateway_refund_id,omitempty" db:"gateway_refund_id"`
}

// RefundOutboxEntry is a recovery intent written when Complete detects
// oversell after the buyer already paid. A payout process outside this
// repo consumes the table.
type RefundOutboxEntry struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	TransactionID uuid.UUID  `json:"transaction_id" db:"transaction_id"`
	Amount        int64      `json:"amount" db:"amount"`
	Reason        string     `json:"reason" db:"reason"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty" db:"processed_at"`
}

// Splits is the platform/organizer division of a completed payment.
type Splits struct {
	OrganizerAmount int64
	PlatformAmount  int64
	SubaccountCode  *string
	Fees            int64
}
