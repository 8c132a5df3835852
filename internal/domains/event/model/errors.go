package model

import "errors"

// Internal error codes for the event domain.
const (
	ErrCodeEventNotFound       = "EVT001"
	ErrCodeEventNotPurchasable = "EVT002"
	ErrCodeTierNotFound        = "EVT003"
	ErrCodeTierNotOnSale       = "EVT004"
	ErrCodeOrganizerNotFound   = "EVT005"
	ErrCodeTierVersionConflict = "EVT006"
)

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrEventNotPurchasable = errors.New("event is not open for ticket sales")
	ErrTierNotFound        = errors.New("ticket tier not found")
	ErrTierNotOnSale       = errors.New("ticket tier is outside its sale window")
	ErrOrganizerNotFound   = errors.New("organizer not found")

	// ErrTierVersionConflict means the optimistic version check on a
	// tier row failed. Callers inside a FOR UPDATE transaction should
	// never see this; it indicates a write path bypassed the lock.
	ErrTierVersionConflict = errors.New("tier version conflict")
)
