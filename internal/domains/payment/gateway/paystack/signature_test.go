package paystack_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ticketing-backend/internal/domains/payment/gateway/paystack"
)

func TestVerifySignatureRoundTrip(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success","data":{"reference":"order_1"}}`)

	sig := paystack.ComputeSignature(secret, body)
	assert.True(t, paystack.VerifySignature(secret, body, sig))
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success"}`)
	sig := paystack.ComputeSignature(secret, body)

	assert.False(t, paystack.VerifySignature(secret, []byte(`{"event":"charge.failed"}`), sig))
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	body := []byte(`{}`)
	sig := paystack.ComputeSignature("sk_live_other", body)

	assert.False(t, paystack.VerifySignature("sk_test_secret", body, sig))
}

func TestVerifySignatureRejectsEmptyInputs(t *testing.T) {
	body := []byte(`{}`)

	// An unset secret must reject everything rather than accept everything.
	assert.False(t, paystack.VerifySignature("", body, paystack.ComputeSignature("", body)))
	assert.False(t, paystack.VerifySignature("sk_test_secret", body, ""))
}
