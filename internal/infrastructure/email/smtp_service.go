package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"ticketing-backend/internal/config"
	"ticketing-backend/internal/shared/utils"
	"ticketing-backend/pkg/logger"
)

// TicketConfirmationData drives the purchase confirmation email.
type TicketConfirmationData struct {
	Email       string
	EventName   string
	OrderID     string
	TicketIDs   []string
	AmountMinor int64
	Currency    string
}

type EmailService interface {
	SendTicketConfirmation(ctx context.Context, data TicketConfirmationData) error
}

type smtpEmailService struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPEmailService sends mail over plain SMTP. Auth is skipped when
// no username is configured (local mailcatcher setups).
func NewSMTPEmailService(cfg config.SMTPConfig) EmailService {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &smtpEmailService{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: auth,
		from: cfg.From,
	}
}

func (s *smtpEmailService) SendTicketConfirmation(ctx context.Context, data TicketConfirmationData) error {
	subject := fmt.Sprintf("Your tickets for %s", data.EventName)
	body := fmt.Sprintf(`Hi,

Your payment was confirmed and your tickets are ready.

Event: %s
Order: %s
Amount paid: %s %s
Tickets: %s

Present the QR code from your account at the gate. Each code admits
one person and can only be scanned once.`,
		data.EventName, data.OrderID,
		data.Currency, utils.MinorToDecimal(data.AmountMinor).StringFixed(2),
		strings.Join(data.TicketIDs, ", "))

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.from, data.Email, subject, body))

	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{data.Email}, msg); err != nil {
		logger.ErrorWithFields("failed to send confirmation email", err, map[string]interface{}{
			"to":      data.Email,
			"orderId": data.OrderID,
		})
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
