package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ticketing-backend/internal/domains/payment/gateway"
	"ticketing-backend/internal/domains/payment/gateway/paystack"
)

// MockPaystackGateway is a deterministic in-process gateway for local
// development and tests. Every initialized reference verifies as a
// successful charge unless failure is toggled on.
type MockPaystackGateway struct {
	mu sync.Mutex

	secretKey string

	shouldFailInit   bool
	shouldFailVerify bool
	shouldFailRefund bool

	// initialized remembers references and their amounts so Verify
	// can echo them back.
	initialized map[string]int64
	refundSeq   int
}

func NewMockPaystackGateway(secretKey string) *MockPaystackGateway {
	return &MockPaystackGateway{
		secretKey:   secretKey,
		initialized: make(map[string]int64),
	}
}

func (m *MockPaystackGateway) Initialize(ctx context.Context, req gateway.InitializeRequest) (*gateway.InitializeResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailInit {
		return nil, fmt.Errorf("mock gateway: initialize failed")
	}

	m.initialized[req.Reference] = req.AmountMinor

	return &gateway.InitializeResponse{
		AuthorizationURL: "https://checkout.mock-paystack.local/" + req.Reference,
		AccessCode:       "mock_" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (m *MockPaystackGateway) Verify(ctx context.Context, reference string) (*gateway.VerifyData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	amount, known := m.initialized[reference]
	if !known {
		return nil, fmt.Errorf("mock gateway: unknown reference %s", reference)
	}

	status := "success"
	if m.shouldFailVerify {
		status = "failed"
	}

	paidAt := time.Now().UTC()
	return &gateway.VerifyData{
		Status:               status,
		AmountMinor:          amount,
		Fees:                 amount / 100,
		Channel:              "card",
		PaidAt:               &paidAt,
		GatewayTransactionID: "mock_txn_" + reference,
		Authorization: gateway.AuthorizationMeta{
			CardType: "visa",
			Last4:    "4081",
			Bank:     "Mock Bank",
		},
	}, nil
}

func (m *MockPaystackGateway) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailRefund {
		return nil, fmt.Errorf("mock gateway: refund failed")
	}

	m.refundSeq++
	return &gateway.RefundResponse{
		GatewayRefundID: fmt.Sprintf("mock_refund_%d", m.refundSeq),
	}, nil
}

func (m *MockPaystackGateway) CreateSubaccount(ctx context.Context, req gateway.SubaccountRequest) (*gateway.SubaccountResponse, error) {
	return &gateway.SubaccountResponse{
		SubaccountCode: "ACCT_mock_" + req.AccountNumber,
		AccountName:    req.BusinessName,
	}, nil
}

func (m *MockPaystackGateway) VerifySignature(rawBody []byte, signature string) bool {
	return paystack.VerifySignature(m.secretKey, rawBody, signature)
}

// SetFailInit toggles Initialize failures.
func (m *MockPaystackGateway) SetFailInit(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailInit = fail
}

// SetFailVerify makes Verify report failed charges.
func (m *MockPaystackGateway) SetFailVerify(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailVerify = fail
}

// SetFailRefund toggles Refund failures.
func (m *MockPaystackGateway) SetFailRefund(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailRefund = fail
}
