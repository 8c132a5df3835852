package shared

import (
	"time"

	"github.com/google/uuid"
)

// Roles recognized by the API layer.
const (
	RoleUser      = "user"
	RoleValidator = "validator"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// Asynq task types.
const (
	TypePaymentRetryDue        = "payment:retry_due"
	TypePaymentExpireStale     = "payment:expire_processing"
	TypeTicketSendConfirmation = "ticket:send_confirmation"
	TypeAuditEvent             = "audit:event"
)

// Queue names, in worker priority order.
const (
	QueueHigh    = "high"
	QueueDefault = "default"
	QueueLow     = "low"
)

// Actor identifies the authenticated caller. Lives here instead of the
// middleware package to avoid import cycles with domain services.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Role   string

	// IsSystem marks calls originating from webhook dispatch or the
	// retry scheduler rather than an end user.
	IsSystem bool
}

// SystemActor is used by the worker and webhook pipelines.
func SystemActor() Actor {
	return Actor{Role: RoleAdmin, IsSystem: true}
}

// TicketConfirmationPayload is the payload for ticket:send_confirmation.
type TicketConfirmationPayload struct {
	TransactionID string   `json:"transactionId"`
	OrderID       string   `json:"orderId"`
	UserID        string   `json:"userId"`
	Email         string   `json:"email"`
	EventName     string   `json:"eventName"`
	TicketIDs     []string `json:"ticketIds"`
	AmountMinor   int64    `json:"amountMinor"`
	Currency      string   `json:"currency"`
}

// AuditEventPayload is the payload for audit:event.
type AuditEventPayload struct {
	Action        string                 `json:"action"`
	TransactionID string                 `json:"transactionId,omitempty"`
	Reference     string                 `json:"reference,omitempty"`
	ActorID       string                 `json:"actorId,omitempty"`
	Detail        map[string]interface{} `json:"detail,omitempty"`
	At            time.Time              `json:"at"`
}
