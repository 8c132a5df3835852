package paystack

import (
	"fmt"
	"time"

	"ticketing-backend/internal/config"
)

// Config carries the Paystack API settings. SecretKey doubles as the
// webhook HMAC key; Paystack signs deliveries with the same secret.
type Config struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

func NewConfig(cfg config.PaystackConfig) *Config {
	return &Config{
		SecretKey: cfg.SecretKey,
		BaseURL:   cfg.BaseURL,
		Timeout:   time.Duration(cfg.TimeoutMS) * time.Millisecond,
	}
}

func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("paystack secret key is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("paystack base URL is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("paystack timeout must be positive")
	}
	return nil
}
