package model

import (
	"errors"
	"fmt"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrOrderNotFound       = errors.New("order not found")

	ErrDuplicateIdempotencyKey = errors.New("idempotency key already exists")

	ErrInvalidQuantity          = errors.New("quantity must be between 1 and 10")
	ErrTierLimit                = errors.New("per-user ticket limit exceeded for this tier")
	ErrInsufficientAvailability = errors.New("not enough tickets available")

	ErrOversold         = errors.New("tier oversold at completion")
	ErrNotRefundable    = errors.New("transaction is not refundable")
	ErrRefundExceedsNet = errors.New("refund amount exceeds net refundable")
	ErrRetryExhausted   = errors.New("retry attempts exhausted")
	ErrNotRetryable     = errors.New("transaction is not in a retryable state")

	ErrGatewayInit   = errors.New("gateway initialization failed")
	ErrGatewayVerify = errors.New("gateway verification failed")
	ErrGatewayRefund = errors.New("gateway refund failed")
)

// InvalidTransitionError carries the rejected (from, to) pair.
type InvalidTransitionError struct {
	From string
	To   string
}

func NewInvalidTransitionError(from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to}
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// ErrInvalidTransition matches any InvalidTransitionError via errors.Is.
var ErrInvalidTransition = errors.New("invalid status transition")

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// PaymentError wraps a domain failure with its internal code for the
// HTTP layer and audit trail.
type PaymentError struct {
	Code    string
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

func NewPaymentError(code, message string, err error) *PaymentError {
	return &PaymentError{Code: code, Message: message, Err: err}
}

// CodeForError maps sentinels onto internal error codes. Unknown
// errors map to the empty string and are treated as internal.
func CodeForError(err error) string {
	switch {
	case errors.Is(err, ErrTransactionNotFound):
		return ErrCodeTransactionNotFound
	case errors.Is(err, ErrOrderNotFound):
		return ErrCodeOrderNotFound
	case errors.Is(err, ErrInvalidTransition):
		return ErrCodeInvalidTransition
	case errors.Is(err, ErrInvalidQuantity):
		return ErrCodeInvalidQuantity
	case errors.Is(err, ErrTierLimit):
		return ErrCodeTierLimit
	case errors.Is(err, ErrInsufficientAvailability):
		return ErrCodeInsufficientAvailability
	case errors.Is(err, ErrOversold):
		return ErrCodeOversold
	case errors.Is(err, ErrNotRefundable):
		return ErrCodeNotRefundable
	case errors.Is(err, ErrRefundExceedsNet):
		return ErrCodeRefundExceedsNet
	case errors.Is(err, ErrRetryExhausted):
		return ErrCodeRetryExhausted
	case errors.Is(err, ErrNotRetryable):
		return ErrCodeNotRetryable
	case errors.Is(err, ErrGatewayInit):
		return ErrCodeGatewayInit
	case errors.Is(err, ErrGatewayVerify):
		return ErrCodeGatewayVerify
	case errors.Is(err, ErrGatewayRefund):
		return ErrCodeGatewayRefund
	default:
		return ""
	}
}
