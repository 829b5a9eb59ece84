// Package apperrors defines the structured errors returned by the generation
// and cooking services. Every error carries a machine-readable code, whether
// the caller may retry, and the identifiers needed to decide what to do next.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code represents an application error code.
type Code string

const (
	// Admission
	CodeRateLimited Code = "RATE_LIMITED"

	// Generation
	CodeNoStock             Code = "NO_STOCK"
	CodeGenerationExhausted Code = "GENERATION_EXHAUSTED"

	// Cooking
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeConflict          Code = "CONFLICT"

	// Generic
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// Error is the base application error type.
type Error struct {
	// Code is the machine-readable error code.
	Code Code `json:"code"`
	// Message is the human-readable error message.
	Message string `json:"message"`
	// Op is the operation being performed (e.g., "cooking.Cook").
	Op string `json:"-"`
	// Retryable reports whether repeating the whole operation may succeed.
	Retryable bool `json:"-"`
	// RetryAfter is set for admission errors.
	RetryAfter time.Duration `json:"-"`
	// Details holds identifiers relevant to the failure (ingredient names, ids).
	Details map[string]any `json:"details,omitempty"`
	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// HTTPStatus returns the appropriate HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeNoStock, CodeInsufficientStock:
		return http.StatusUnprocessableEntity
	case CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// WithDetail returns e with key set in its details.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// ErrorResponse represents the JSON response for API errors.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error details in API responses.
type ErrorDetail struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ToResponse converts an Error to an API response.
func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    e.Code,
			Message: e.Message,
			Details: e.Details,
		},
	}
}

// New creates a new Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Retryable: retryableCode(code)}
}

// Wrap wraps an existing error with operation context.
func Wrap(err error, op string, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Op: op, Err: err, Retryable: retryableCode(code)}
}

func retryableCode(code Code) bool {
	switch code {
	case CodeRateLimited, CodeConflict:
		return true
	default:
		return false
	}
}

// Sentinels for errors.Is comparisons.
var (
	ErrRateLimited         = New(CodeRateLimited, "rate limit exceeded")
	ErrNoStock             = New(CodeNoStock, "no usable stock")
	ErrGenerationExhausted = New(CodeGenerationExhausted, "recipe generation exhausted")
	ErrInsufficientStock   = New(CodeInsufficientStock, "insufficient stock")
	ErrConflict            = New(CodeConflict, "stock was modified concurrently")
	ErrNotFound            = New(CodeNotFound, "resource not found")
	ErrInvalidInput        = New(CodeInvalidInput, "invalid input")
	ErrUnauthorized        = New(CodeUnauthorized, "authentication required")
)

// RateLimited creates an admission error carrying the retry-after hint.
func RateLimited(scope string, retryAfter time.Duration) *Error {
	e := New(CodeRateLimited, fmt.Sprintf("rate limit exceeded for %s", scope))
	e.RetryAfter = retryAfter
	return e.WithDetail("scope", scope).WithDetail("retry_after_seconds", retryAfterSeconds(retryAfter))
}

// NotFound creates a not found error for a specific resource.
func NotFound(resource, id string) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource)).WithDetail("id", id)
}

// InvalidInput creates a validation error.
func InvalidInput(message string) *Error {
	return New(CodeInvalidInput, message)
}

// Internal creates a generic internal error.
func Internal(op, message string, err error) *Error {
	return Wrap(err, op, CodeInternal, message)
}

// GetCode extracts the error code from an error, returning CodeInternal for non-app errors.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// GetHTTPStatus extracts the HTTP status from an error, returning 500 for non-app errors.
func GetHTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// From returns err as an *Error, wrapping unknown errors as internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("", "internal server error", err)
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	s := int(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}

// RetryAfterSeconds returns the Retry-After header value for err, or 0.
func RetryAfterSeconds(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return retryAfterSeconds(e.RetryAfter)
	}
	return 0
}
