package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithDetails creates a domain error carrying structured details,
// e.g. the effective minimums for a rejected limit change
func NewDomainErrorWithDetails(code, message string, details map[string]any) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Error codes shared between the entitlement and billing contexts
const (
	ErrCodeInsufficientTokens     = "INSUFFICIENT_TOKENS"
	ErrCodeBelowMinimum           = "BELOW_MINIMUM"
	ErrCodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	ErrCodeUnknownConnection      = "UNKNOWN_CONNECTION"
	ErrCodeDuplicateConnection    = "DUPLICATE_CONNECTION"
	ErrCodeSwapUnavailable        = "SWAP_UNAVAILABLE"
)
