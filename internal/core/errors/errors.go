package errors

const (
	HttpInternalError          = "internal_error"
	HttpInvalidJsonError       = "invalid_json"
	HttpValidationError        = "validation_failed"
	HttpNotFoundError          = "not_found"
	HttpInsufficientFundsError = "insufficient_funds"
	HttpAccountFrozenError     = "account_frozen"
	HttpComplianceError        = "compliance_rejected"
	HttpInProgressError        = "operation_in_progress"
	HttpSagaCompensatedError   = "saga_compensated"
	HttpSagaFailedError        = "saga_failed"
	HttpCompensationError      = "compensation_failed"
)

// ErrorResponse is the error response body for ledger operation errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
