package resilience_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ticketing-backend/pkg/resilience"
)

func TestPaymentRetryBackoffDefaults(t *testing.T) {
	b := resilience.PaymentRetryBackoff(1*time.Second, 30*time.Second)

	assert.Equal(t, 1*time.Second, b.BaseDelay)
	assert.Equal(t, 30*time.Second, b.MaxDelay)
	assert.Equal(t, 2.0, b.Multiplier)
	assert.Equal(t, 0.1, b.Jitter)
}

func TestNextDelayExponentialGrowth(t *testing.T) {
	b := resilience.PaymentRetryBackoff(1*time.Second, 30*time.Second)

	cases := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
	}

	for _, tc := range cases {
		delay := b.NextDelay(tc.attempt)
		lo := time.Duration(float64(tc.expected) * 0.9)
		hi := time.Duration(float64(tc.expected) * 1.1)
		assert.GreaterOrEqual(t, delay, lo, "attempt %d below jitter floor", tc.attempt)
		assert.LessOrEqual(t, delay, hi, "attempt %d above jitter ceiling", tc.attempt)
	}
}

func TestNextDelayCappedAtMax(t *testing.T) {
	b := resilience.PaymentRetryBackoff(1*time.Second, 30*time.Second)

	// 2^10 seconds is far beyond the cap; jitter applies to the cap.
	for attempt := 5; attempt <= 10; attempt++ {
		delay := b.NextDelay(attempt)
		assert.GreaterOrEqual(t, delay, 27*time.Second)
		assert.LessOrEqual(t, delay, 33*time.Second)
	}
}

func TestNextDelayNegativeAttempt(t *testing.T) {
	b := resilience.PaymentRetryBackoff(1*time.Second, 30*time.Second)

	assert.Equal(t, 1*time.Second, b.NextDelay(-1))
}

func TestNextDelayJitterSpreadsValues(t *testing.T) {
	b := resilience.PaymentRetryBackoff(1*time.Second, 30*time.Second)

	seen := make(map[time.Duration]bool)
	for i := 0; i < 50; i++ {
		seen[b.NextDelay(3)] = true
	}

	// With ±10% jitter over 8s the draws should not all collapse
	// to a single value.
	assert.Greater(t, len(seen), 1)
}

func TestFixedBackoff(t *testing.T) {
	b := &resilience.FixedBackoff{Delay: 5 * time.Second}

	assert.Equal(t, 5*time.Second, b.NextDelay(0))
	assert.Equal(t, 5*time.Second, b.NextDelay(9))
}
