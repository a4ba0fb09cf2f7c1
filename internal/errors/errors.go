package errors

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes
const (
	// Authentication errors
	ErrCodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodeTooManyAttempts        = "TOO_MANY_ATTEMPTS"

	// Authorization errors
	ErrCodeAuthorizationDenied = "AUTHORIZATION_DENIED"

	// Validation errors
	ErrCodeValidationFailure = "VALIDATION_FAILURE"
	ErrCodeUnknownMethod     = "UNKNOWN_METHOD"

	// Resource errors
	ErrCodeNotFound = "NOT_FOUND"
	ErrCodeConflict = "CONFLICT"

	// Service errors
	ErrCodeStorageFailure = "STORAGE_FAILURE"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// APIError is the structured failure handed back to the shell.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Payload renders the error the way the shell expects it: the message
// under "error", plus the machine-readable code.
func (e *APIError) Payload() gin.H {
	h := gin.H{
		"error": e.Message,
		"code":  e.Code,
	}
	if e.Details != nil {
		h["details"] = e.Details
	}
	return h
}

// Status maps the code to the HTTP status used inside the in-process
// router. It never reaches the shell.
func (e *APIError) Status() int {
	switch e.Code {
	case ErrCodeAuthenticationRequired, ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case ErrCodeTooManyAttempts:
		return http.StatusTooManyRequests
	case ErrCodeAuthorizationDenied:
		return http.StatusForbidden
	case ErrCodeValidationFailure:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeUnknownMethod:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ContextKeyCode is where Respond leaves the error code for the logging
// and metrics middleware.
const ContextKeyCode = "error_code"

// Respond aborts the chain and writes err.
func Respond(c *gin.Context, err *APIError) {
	c.Set(ContextKeyCode, err.Code)
	c.AbortWithStatusJSON(err.Status(), err.Payload())
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// NewAPIErrorWithDetails creates a new APIError with details
func NewAPIErrorWithDetails(code, message string, details interface{}) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Helper constructors for the common taxonomy entries. An empty message
// falls back to a generic one.

// AuthenticationRequired reports a missing, invalid or expired token.
func AuthenticationRequired(message string) *APIError {
	return NewAPIError(ErrCodeAuthenticationRequired, orDefault(message, "Authentication required."))
}

// InvalidCredentials reports a failed login.
func InvalidCredentials(message string) *APIError {
	return NewAPIError(ErrCodeInvalidCredentials, orDefault(message, "Invalid credentials."))
}

// TooManyAttempts reports a throttled login.
func TooManyAttempts(message string) *APIError {
	return NewAPIError(ErrCodeTooManyAttempts, orDefault(message, "Too many login attempts, try again later."))
}

// AuthorizationDenied reports a resource owned by someone else.
func AuthorizationDenied(message string) *APIError {
	return NewAPIError(ErrCodeAuthorizationDenied, orDefault(message, "Access denied."))
}

// NotFound reports an absent resource.
func NotFound(message string) *APIError {
	return NewAPIError(ErrCodeNotFound, orDefault(message, "Resource not found."))
}

// Conflict reports a mutation blocked by a live reference.
func Conflict(message string) *APIError {
	return NewAPIError(ErrCodeConflict, orDefault(message, "Resource conflict."))
}

// ValidationFailure reports malformed input.
func ValidationFailure(message string) *APIError {
	return NewAPIError(ErrCodeValidationFailure, orDefault(message, "Invalid request."))
}

// ValidationFailureWithDetails reports malformed input with per-field details.
func ValidationFailureWithDetails(message string, details interface{}) *APIError {
	return NewAPIErrorWithDetails(ErrCodeValidationFailure, orDefault(message, "Invalid request."), details)
}

// UnknownMethod reports a request for an operation that does not exist.
func UnknownMethod(method string) *APIError {
	return NewAPIError(ErrCodeUnknownMethod, fmt.Sprintf("Unknown method %q.", method))
}

// StorageFailure reports an underlying store error without leaking driver detail.
func StorageFailure(message string) *APIError {
	return NewAPIError(ErrCodeStorageFailure, orDefault(message, "Storage failure."))
}

// InternalError reports anything else.
func InternalError(message string) *APIError {
	return NewAPIError(ErrCodeInternalError, orDefault(message, "Internal error."))
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}
