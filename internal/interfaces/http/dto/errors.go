package dto

import (
	"net/http"

	"github.com/livrocaixa/backend/internal/domain/shared"
)

// Transport-level error codes. Domain codes pass through unchanged; these
// cover failures that never reach the domain.
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeForbidden is used when the caller lacks access to the tenant
	ErrCodeForbidden = "FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	// ErrCodeNotFound is used when a route or resource is not found
	ErrCodeNotFound = shared.CodeNotFound
	// ErrCodeConflict is used for resource conflicts outside the domain taxonomy
	ErrCodeConflict = "CONFLICT"
	// ErrCodeRateLimited is used when the rate limit is exceeded
	ErrCodeRateLimited = "RATE_LIMITED"
	// ErrCodeRequestTooLarge is used when the request body exceeds the limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	// ErrCodeDuplicateRequest is used when an idempotency key is replayed
	ErrCodeDuplicateRequest = "DUPLICATE_REQUEST"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes. Domain codes
// map by their semantics: conflicts are 409, policy and state rejections are
// 422, a tenant consistency breach is a 500 because it means the scoping
// itself failed.
var ErrorCodeHTTPStatus = map[string]int{
	shared.CodeNotFound:         http.StatusNotFound,
	shared.CodeAlreadyExists:    http.StatusConflict,
	shared.CodeDuplicateClosing: http.StatusConflict,
	shared.CodePolicyViolation:  http.StatusUnprocessableEntity,
	shared.CodeInvalidState:     http.StatusUnprocessableEntity,
	shared.CodeValidationError:  http.StatusBadRequest,
	shared.CodeConsistencyError: http.StatusInternalServerError,

	ErrCodeInternal:         http.StatusInternalServerError,
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeForbidden:        http.StatusForbidden,
	ErrCodeTokenExpired:     http.StatusUnauthorized,
	ErrCodeConflict:         http.StatusConflict,
	ErrCodeRateLimited:      http.StatusTooManyRequests,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeDuplicateRequest: http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not known.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ValidationDetail describes one field that failed request validation
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewErrorResponseWithRequestID creates an error response carrying the
// request id for log correlation
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	}
}

// NewValidationErrorResponse creates a 400-style response listing every
// failed field
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      shared.CodeValidationError,
			Message:   message,
			RequestID: requestID,
			Details:   details,
		},
	}
}
