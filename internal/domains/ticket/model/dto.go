package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Scan outcomes. The string values are part of the API contract with
// scanner devices.
const (
	ScanValid         = "VALID"
	ScanInvalid       = "INVALID"
	ScanNotFound      = "NOT_FOUND"
	ScanWrongEvent    = "WRONG_EVENT"
	ScanNotAssigned   = "NOT_ASSIGNED"
	ScanAlreadyUsed   = "ALREADY_USED"
	ScanCancelled     = "CANCELLED"
	ScanRaceCondition = "RACE_CONDITION"
)

// ScanRequest is the gate device payload. EventID is optional; when
// supplied the scan is rejected if the ticket belongs elsewhere.
type ScanRequest struct {
	QRCode  string `json:"qrCode"`
	EventID string `json:"eventId,omitempty"`
}

func (r ScanRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.QRCode, validation.Required, validation.Length(1, 2048)),
	)
}

// ClaimedEventID parses the optional event id. A malformed id is
// treated the same as a mismatching one by the validator.
func (r ScanRequest) ClaimedEventID() *uuid.UUID {
	if r.EventID == "" {
		return nil
	}
	id, err := uuid.Parse(r.EventID)
	if err != nil {
		nilID := uuid.Nil
		return &nilID
	}
	return &id
}

// TicketHolder is the summary shown to gate staff on a decided scan.
type TicketHolder struct {
	TicketID    uuid.UUID  `json:"ticket_id"`
	OrderID     uuid.UUID  `json:"order_id"`
	UserID      uuid.UUID  `json:"user_id"`
	TierName    string     `json:"tier_name"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	CheckedInBy *uuid.UUID `json:"checked_in_by,omitempty"`
}

// ScanResult is the decision for one scan attempt. Exactly one scan
// per ticket ever carries ScanValid.
type ScanResult struct {
	Status string        `json:"status"`
	Reason string        `json:"reason,omitempty"`
	Ticket *TicketHolder `json:"ticket,omitempty"`
}
