package model

import "errors"

// Internal error codes for the ticket domain.
const (
	ErrCodeTicketNotFound  = "TKT001"
	ErrCodeTokenCollision  = "TKT002"
	ErrCodeCheckInConflict = "TKT003"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrDuplicateQRCode surfaces the unique constraint on qr_code.
	// The minting loop re-signs with a fresh issue timestamp on this.
	ErrDuplicateQRCode = errors.New("duplicate qr code")

	// ErrTokenCollision means re-signing failed three times in a row,
	// which should be statistically impossible with a healthy clock.
	ErrTokenCollision = errors.New("ticket token collision persisted across retries")
)
