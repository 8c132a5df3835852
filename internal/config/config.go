package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the whole application configuration,
// populated from environment variables.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
	Paystack PaystackConfig
	QR       QRConfig
	Retry    RetryConfig
	Splits   SplitsConfig
	Worker   WorkerConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// PaystackConfig configures the payment gateway adapter.
// An empty SecretKey disables webhook processing: every delivery is
// rejected as "Invalid signature".
type PaystackConfig struct {
	SecretKey string // PAYMENT_SECRET_KEY, used for API auth and webhook HMAC
	BaseURL   string
	TimeoutMS int
	UseMock   bool // route gateway calls to the in-process mock
}

type QRConfig struct {
	Secret string // QR_SECRET_KEY, HMAC key for ticket tokens
}

type RetryConfig struct {
	BaseMS      int
	MaxMS       int
	MaxAttempts int
}

type SplitsConfig struct {
	OrganizerPercent int
}

type WorkerConfig struct {
	Concurrency         int
	ProcessingExpiryMin int // minutes before a stuck processing transaction is failed
}

// Load reads config from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Ticketing API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "ticketing"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvInt("SMTP_PORT", 1025),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "tickets@example.com"),
		},
		Paystack: PaystackConfig{
			SecretKey: getEnv("PAYMENT_SECRET_KEY", ""),
			BaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			TimeoutMS: getEnvInt("GATEWAY_TIMEOUT_MS", 15000),
			UseMock:   getEnv("PAYMENT_USE_MOCK", "false") == "true",
		},
		QR: QRConfig{
			Secret: getEnv("QR_SECRET_KEY", ""),
		},
		Retry: RetryConfig{
			BaseMS:      getEnvInt("RETRY_BASE_MS", 1000),
			MaxMS:       getEnvInt("RETRY_MAX_MS", 30000),
			MaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		},
		Splits: SplitsConfig{
			OrganizerPercent: getEnvInt("ORGANIZER_PERCENT", 90),
		},
		Worker: WorkerConfig{
			Concurrency:         getEnvInt("WORKER_CONCURRENCY", 20),
			ProcessingExpiryMin: getEnvInt("PAYMENT_PROCESSING_EXPIRY_MIN", 15),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks invariants that would otherwise surface as runtime
// faults deep inside the payment pipeline.
func (c *Config) Validate() error {
	if c.Splits.OrganizerPercent < 0 || c.Splits.OrganizerPercent > 100 {
		return fmt.Errorf("ORGANIZER_PERCENT must be between 0 and 100, got %d", c.Splits.OrganizerPercent)
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must not be negative")
	}
	if c.Retry.BaseMS <= 0 || c.Retry.MaxMS < c.Retry.BaseMS {
		return fmt.Errorf("retry backoff window invalid: base=%dms max=%dms", c.Retry.BaseMS, c.Retry.MaxMS)
	}

	if c.App.Environment == "production" {
		if c.JWT.Secret == "your-secret-key-change-in-production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD must be set in production")
		}
		if c.QR.Secret == "" {
			return fmt.Errorf("QR_SECRET_KEY must be set in production")
		}
		if c.Paystack.UseMock {
			return fmt.Errorf("PAYMENT_USE_MOCK must not be enabled in production")
		}

		// Missing payment secret is allowed: webhooks are simply
		// rejected until it is configured.
		if c.Paystack.SecretKey == "" {
			fmt.Println("WARNING: PAYMENT_SECRET_KEY not set - webhook processing is disabled")
		}
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
