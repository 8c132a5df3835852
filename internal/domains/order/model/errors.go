package model

import "errors"

// Internal error codes for the order domain.
const (
	ErrCodeOrderNotFound   = "ORD001"
	ErrCodeOrderNotPending = "ORD002"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderNotPending = errors.New("order is not pending payment")
)
