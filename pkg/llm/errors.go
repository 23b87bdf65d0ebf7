// Error types and handling
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors for common failure modes, matched with errors.Is
var (
	ErrRateLimited         = errors.New("llm: rate limit exceeded")
	ErrProviderUnavailable = errors.New("llm: provider unavailable")
	ErrInvalidRequest      = errors.New("llm: invalid request")
	ErrStreamTruncated     = errors.New("llm: stream ended without a finish reason")
	ErrUnsupportedBackend  = errors.New("llm: unsupported backend")
	ErrNoAPIKey            = errors.New("llm: no usable API key")
)

// Error types
const (
	ErrorTypeRateLimit      = "rate_limit_error"
	ErrorTypeOverloaded     = "overloaded_error"
	ErrorTypeInvalidRequest = "invalid_request_error"
	ErrorTypeAuthentication = "authentication_error"
	ErrorTypeNetwork        = "network_error"
	ErrorTypeAPI            = "api_error"
	ErrorTypeValidation     = "validation_error"
)

// Error represents a standardized LLM error
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	StatusCode int    `json:"status_code,omitempty"`

	// RetryAfter is the server-suggested wait before the next attempt, if any
	RetryAfter time.Duration `json:"retry_after,omitempty"`

	// Err is the underlying cause
	Err error `json:"-"`
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match an *Error against the sentinel errors by classification
func (e *Error) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.IsRateLimit()
	case ErrProviderUnavailable:
		return e.Type == ErrorTypeOverloaded || e.StatusCode >= http.StatusInternalServerError
	case ErrInvalidRequest:
		return e.Type == ErrorTypeInvalidRequest || e.Type == ErrorTypeValidation
	}
	return false
}

// IsRateLimit reports whether the error signals a rate-limited API key
func (e *Error) IsRateLimit() bool {
	return e.Type == ErrorTypeRateLimit || e.StatusCode == http.StatusTooManyRequests
}

// NewErrorFromStatus maps an HTTP status code onto the error taxonomy
func NewErrorFromStatus(statusCode int, message string) *Error {
	e := &Error{
		Code:       "api_error",
		Message:    message,
		Type:       ErrorTypeAPI,
		StatusCode: statusCode,
	}
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Code, e.Type = "invalid_api_key", ErrorTypeAuthentication
	case statusCode == http.StatusTooManyRequests:
		e.Code, e.Type = "rate_limit_exceeded", ErrorTypeRateLimit
	case statusCode == http.StatusRequestTimeout:
		e.Code, e.Type = "timeout_error", ErrorTypeNetwork
	case statusCode == 529 || statusCode == http.StatusServiceUnavailable:
		e.Code, e.Type = "overloaded", ErrorTypeOverloaded
	case statusCode >= 500:
		e.Code = "server_error"
	case statusCode >= 400:
		e.Code, e.Type = "bad_request", ErrorTypeInvalidRequest
	}
	return e
}

// NewErrorFromFinishReason converts a backend error chunk into an attempt-level error
func NewErrorFromFinishReason(reason FinishReason, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("backend reported %s", reason)
	}
	switch reason {
	case FinishReasonRateLimit:
		return &Error{Code: "rate_limit_exceeded", Message: message, Type: ErrorTypeRateLimit, StatusCode: http.StatusTooManyRequests}
	case FinishReasonOverloaded:
		return &Error{Code: "overloaded", Message: message, Type: ErrorTypeOverloaded, StatusCode: 529}
	case FinishReasonInvalidRequest:
		return &Error{Code: "invalid_request", Message: message, Type: ErrorTypeInvalidRequest, StatusCode: http.StatusBadRequest}
	default:
		return &Error{Code: "backend_error", Message: message, Type: ErrorTypeAPI}
	}
}

// NewNetworkError wraps a transport failure
func NewNetworkError(err error) *Error {
	return &Error{
		Code:    "network_error",
		Message: err.Error(),
		Type:    ErrorTypeNetwork,
		Err:     err,
	}
}

// IsCancellation reports whether err comes from context cancellation rather than a failure
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsRateLimit reports whether err signals a rate-limited API key
func IsRateLimit(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if an error is potentially retryable at the attempt level.
// Rate limits, overloads, 5xx, network failures and truncated streams are retryable;
// cancellation, authentication and invalid requests are not.
func IsRetryable(err error) bool {
	if err == nil || IsCancellation(err) {
		return false
	}
	if errors.Is(err, ErrStreamTruncated) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrProviderUnavailable) {
		return true
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		switch llmErr.Type {
		case ErrorTypeNetwork, ErrorTypeOverloaded, ErrorTypeRateLimit:
			return true
		}
		return false
	}
	return false
}

// RetryAfterOf returns the server-suggested retry delay carried by err, if any
func RetryAfterOf(err error) time.Duration {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.RetryAfter
	}
	return 0
}
