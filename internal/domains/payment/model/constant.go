package model

// =====================================================
// TRANSACTION STATUS
// =====================================================
const (
	StatusInitiated         = "initiated"
	StatusProcessing        = "processing"
	StatusCompleted         = "completed"
	StatusFailed            = "failed"
	StatusRefunded          = "refunded"
	StatusPartiallyRefunded = "partially_refunded"
)

var ValidStatuses = []string{
	StatusInitiated,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusRefunded,
	StatusPartiallyRefunded,
}

// allowedTransitions is the whole state machine. refunded is terminal;
// failed→processing is the retry path.
var allowedTransitions = map[string][]string{
	StatusInitiated:         {StatusProcessing, StatusFailed},
	StatusProcessing:        {StatusCompleted, StatusFailed},
	StatusCompleted:         {StatusPartiallyRefunded, StatusRefunded},
	StatusPartiallyRefunded: {StatusRefunded},
	StatusFailed:            {StatusProcessing},
	StatusRefunded:          {},
}

// ValidateTransition returns ErrInvalidTransition for any (from, to)
// pair outside the state machine.
func ValidateTransition(from, to string) error {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return NewInvalidTransitionError(from, to)
}

// =====================================================
// GATEWAY
// =====================================================
const (
	GatewayPaystack = "paystack"

	DefaultCurrency = "NGN"
)

// Webhook event names dispatched by the processor.
const (
	WebhookChargeSuccess   = "charge.success"
	WebhookChargeFailed    = "charge.failed"
	WebhookTransferSuccess = "transfer.success"
	WebhookTransferFailed  = "transfer.failed"
	WebhookRefundProcessed = "refund.processed"
)

// Gateway verification statuses.
const (
	VerifyStatusSuccess   = "success"
	VerifyStatusFailed    = "failed"
	VerifyStatusAbandoned = "abandoned"
)

// Failure codes recorded on failed transactions. Codes, not prose:
// the retry scheduler keys off them.
const (
	FailureInitFailed = "init_failed"
	FailureGateway    = "gateway_error"
	FailureTimeout    = "timeout"
	FailureOversold   = "oversold"
	FailureDeclined   = "declined"
)

// retryableFailures schedule a next_retry_at; business-terminal
// failures such as oversold never do.
var retryableFailures = map[string]bool{
	FailureInitFailed: true,
	FailureGateway:    true,
	FailureTimeout:    true,
}

func IsRetryableFailure(code string) bool {
	return retryableFailures[code]
}

// =====================================================
// INTERNAL ERROR CODES
// =====================================================
const (
	// Not found
	ErrCodeTransactionNotFound = "TXN001"
	ErrCodeOrderNotFound       = "TXN002"

	// State machine
	ErrCodeInvalidTransition = "TXN003"

	// Validation
	ErrCodeInvalidQuantity          = "TXN010"
	ErrCodeTierLimit                = "TXN011"
	ErrCodeInsufficientAvailability = "TXN012"

	// Conflicts
	ErrCodeOversold         = "TXN013"
	ErrCodeNotRefundable    = "TXN014"
	ErrCodeRefundExceedsNet = "TXN015"
	ErrCodeRetryExhausted   = "TXN016"
	ErrCodeNotRetryable     = "TXN017"

	// Gateway
	ErrCodeGatewayInit   = "TXN020"
	ErrCodeGatewayVerify = "TXN021"
	ErrCodeGatewayRefund = "TXN022"
)
