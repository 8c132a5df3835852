package main

import (
	"github.com/hibiken/asynq"

	paymentJob "ticketing-backend/internal/domains/payment/job"
	ticketJob "ticketing-backend/internal/domains/ticket/job"
	"ticketing-backend/internal/infrastructure/email"
	"ticketing-backend/internal/shared"
	"ticketing-backend/internal/shared/audit"
	"ticketing-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	retryDue    *paymentJob.RetryDueHandler
	expireStale *paymentJob.ExpireStaleHandler

	sendConfirmation *ticketJob.SendConfirmationHandler

	auditLog *audit.LogHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	emailSvc := email.NewSMTPEmailService(c.Config.SMTP)

	return &HandlerRegistry{
		retryDue:    paymentJob.NewRetryDueHandler(c.Engine),
		expireStale: paymentJob.NewExpireStaleHandler(c.Engine),

		sendConfirmation: ticketJob.NewSendConfirmationHandler(emailSvc),

		auditLog: audit.NewLogHandler(),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	// Payment maintenance
	mux.HandleFunc(shared.TypePaymentRetryDue, h.retryDue.ProcessTask)
	mux.HandleFunc(shared.TypePaymentExpireStale, h.expireStale.ProcessTask)

	// Ticket delivery
	mux.HandleFunc(shared.TypeTicketSendConfirmation, h.sendConfirmation.ProcessTask)

	// Audit trail
	mux.HandleFunc(shared.TypeAuditEvent, h.auditLog.ProcessTask)
}
