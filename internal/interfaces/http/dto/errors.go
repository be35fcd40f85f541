package dto

import "net/http"

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeValidation is used when request validation fails
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeUnauthorized is used when authentication is required but missing or invalid
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeForbidden is used when the caller lacks access to the resource
	ErrCodeForbidden = "FORBIDDEN"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "CONFLICT"
)

// ErrorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes not listed here fall back to 422 for business rule violations
// via GetHTTPStatus.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,

	// Auth
	ErrCodeUnauthorized:  http.StatusUnauthorized,
	ErrCodeForbidden:     http.StatusForbidden,
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"TOKEN_INVALID":       http.StatusUnauthorized,
	"TOKEN_EXPIRED":       http.StatusUnauthorized,

	// Missing resources
	ErrCodeNotFound:      http.StatusNotFound,
	"UNKNOWN_CONNECTION": http.StatusNotFound,
	"NOT_SUBSCRIBED":     http.StatusNotFound,
	"NO_PENDING_CHANGE":  http.StatusNotFound,

	// Conflicting state
	ErrCodeConflict:            http.StatusConflict,
	"ALREADY_EXISTS":           http.StatusConflict,
	"EMAIL_TAKEN":              http.StatusConflict,
	"DUPLICATE_CONNECTION":     http.StatusConflict,
	"CONCURRENCY_CONFLICT":     http.StatusConflict,
	"INVALID_STATE_TRANSITION": http.StatusConflict,
	"INVALID_STATE":            http.StatusConflict,

	// Payment required
	"SUBSCRIPTION_LOCKED": http.StatusPaymentRequired,
	"PAYMENT_FAILED":      http.StatusPaymentRequired,

	// Business rule violations
	"INSUFFICIENT_TOKENS": http.StatusUnprocessableEntity,
	"BELOW_MINIMUM":       http.StatusUnprocessableEntity,
	"SWAP_UNAVAILABLE":    http.StatusUnprocessableEntity,

	// Malformed input surfaced by the domain
	"INVALID_INPUT":        http.StatusBadRequest,
	"INVALID_ACCOUNT":      http.StatusBadRequest,
	"INVALID_EMAIL":        http.StatusBadRequest,
	"INVALID_PASSWORD":     http.StatusBadRequest,
	"INVALID_DISPLAY_NAME": http.StatusBadRequest,
	"INVALID_TOKEN":        http.StatusBadRequest,
	"INVALID_LIMIT":        http.StatusBadRequest,
	"INVALID_PERIOD":       http.StatusBadRequest,

	// Upstream provider failures
	"LINK_FAILED":       http.StatusBadGateway,
	"UNLINK_FAILED":     http.StatusBadGateway,
	"EMAIL_SEND_FAILED": http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for a domain error code.
// Unknown codes map to 422: they are domain rejections we have not
// classified, not server faults.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusUnprocessableEntity
}
