package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ticketing-backend/internal/domains/payment/gateway"
)

// Client talks to the Paystack REST API. All amounts cross the wire
// in minor units, which matches the internal representation.
type Client struct {
	config     *Config
	httpClient *http.Client
}

func NewClient(config *Config) (gateway.PaymentGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid paystack config: %w", err)
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// envelope is Paystack's uniform response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paystack request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 || !env.Status {
		return fmt.Errorf("paystack error (HTTP %d): %s", resp.StatusCode, env.Message)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

func (c *Client) Initialize(ctx context.Context, req gateway.InitializeRequest) (*gateway.InitializeResponse, error) {
	payload := map[string]interface{}{
		"email":     req.Email,
		"amount":    req.AmountMinor,
		"reference": req.Reference,
	}
	if req.SubaccountCode != "" {
		payload["subaccount"] = req.SubaccountCode
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}

	var data initializeData
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", payload, &data); err != nil {
		return nil, err
	}

	return &gateway.InitializeResponse{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

type verifyData struct {
	ID            int64      `json:"id"`
	Status        string     `json:"status"`
	Amount        int64      `json:"amount"`
	Fees          int64      `json:"fees"`
	Channel       string     `json:"channel"`
	PaidAt        *time.Time `json:"paid_at"`
	Authorization struct {
		CardType string `json:"card_type"`
		Last4    string `json:"last4"`
		Bank     string `json:"bank"`
	} `json:"authorization"`
	Subaccount *struct {
		SubaccountCode string `json:"subaccount_code"`
	} `json:"subaccount"`
	SubaccountAmount int64 `json:"subaccount_amount"`
}

func (c *Client) Verify(ctx context.Context, reference string) (*gateway.VerifyData, error) {
	var data verifyData
	path := "/transaction/verify/" + url.PathEscape(reference)
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}

	result := &gateway.VerifyData{
		Status:               data.Status,
		AmountMinor:          data.Amount,
		Fees:                 data.Fees,
		Channel:              data.Channel,
		PaidAt:               data.PaidAt,
		GatewayTransactionID: fmt.Sprintf("%d", data.ID),
		Authorization: gateway.AuthorizationMeta{
			CardType: data.Authorization.CardType,
			Last4:    data.Authorization.Last4,
			Bank:     data.Authorization.Bank,
		},
	}
	if data.Subaccount != nil {
		result.Subaccount = &gateway.SubaccountShare{
			Code:         data.Subaccount.SubaccountCode,
			SharedAmount: data.SubaccountAmount,
		}
	}
	return result, nil
}

type refundData struct {
	ID int64 `json:"id"`
}

func (c *Client) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResponse, error) {
	payload := map[string]interface{}{
		"transaction": req.TransactionReference,
		"amount":      req.AmountMinor,
	}

	var data refundData
	if err := c.do(ctx, http.MethodPost, "/refund", payload, &data); err != nil {
		return nil, err
	}

	return &gateway.RefundResponse{
		GatewayRefundID: fmt.Sprintf("%d", data.ID),
	}, nil
}

type subaccountData struct {
	SubaccountCode string `json:"subaccount_code"`
	AccountName    string `json:"account_name"`
}

func (c *Client) CreateSubaccount(ctx context.Context, req gateway.SubaccountRequest) (*gateway.SubaccountResponse, error) {
	payload := map[string]interface{}{
		"business_name":     req.BusinessName,
		"settlement_bank":   req.BankCode,
		"account_number":    req.AccountNumber,
		"percentage_charge": req.PercentageCharge,
	}

	var data subaccountData
	if err := c.do(ctx, http.MethodPost, "/subaccount", payload, &data); err != nil {
		return nil, err
	}

	return &gateway.SubaccountResponse{
		SubaccountCode: data.SubaccountCode,
		AccountName:    data.AccountName,
	}, nil
}

func (c *Client) VerifySignature(rawBody []byte, signature string) bool {
	return VerifySignature(c.config.SecretKey, rawBody, signature)
}
