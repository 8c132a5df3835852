package gateway

import (
	"context"
	"time"
)

// InitializeRequest starts a hosted checkout. Amounts are minor units.
type InitializeRequest struct {
	Email          string
	AmountMinor    int64
	Reference      string
	SubaccountCode string
	Metadata       map[string]interface{}
}

type InitializeResponse struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// AuthorizationMeta echoes the instrument the gateway charged.
type AuthorizationMeta struct {
	CardType string
	Last4    string
	Bank     string
}

// SubaccountShare reports the settlement split the gateway applied.
type SubaccountShare struct {
	Code         string
	SharedAmount int64
}

// VerifyData is the gateway's authoritative record of a charge.
type VerifyData struct {
	Status               string
	AmountMinor          int64
	Fees                 int64
	Channel              string
	PaidAt               *time.Time
	GatewayTransactionID string
	Authorization        AuthorizationMeta
	Subaccount           *SubaccountShare
}

type RefundRequest struct {
	TransactionReference string
	AmountMinor          int64
}

type RefundResponse struct {
	GatewayRefundID string
}

type SubaccountRequest struct {
	BusinessName     string
	BankCode         string
	AccountNumber    string
	PercentageCharge float64
}

type SubaccountResponse struct {
	SubaccountCode string
	AccountName    string
}

// PaymentGateway is the provider port. Implementations must honour
// the context deadline on every network call.
type PaymentGateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*VerifyData, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResponse, error)
	CreateSubaccount(ctx context.Context, req SubaccountRequest) (*SubaccountResponse, error)

	// VerifySignature authenticates a webhook body against its
	// signature header in constant time.
	VerifySignature(rawBody []byte, signature string) bool
}
