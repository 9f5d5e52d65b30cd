package siemfeed

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrNoCredentials = errors.New("siemfeed: no credentials configured")
	ErrNoBaseURL     = errors.New("siemfeed: no base URL configured")
	ErrNoStateStore  = errors.New("siemfeed: no state store configured")
)

// APIError represents a general vendor API error.
type APIError struct {
	StatusCode int    `json:"status"`
	Message    string `json:"message"`
	RequestID  string `json:"requestId,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("siemfeed: API error %d: %s (request_id=%s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("siemfeed: API error %d: %s", e.StatusCode, e.Message)
}

// AuthenticationError indicates the vendor rejected our credentials.
// It covers denied requests (401/403) as well as failed session logins
// and token exchanges, in which case Err carries the underlying cause.
type AuthenticationError struct {
	APIError
	Err error
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("siemfeed: authentication failed: %v", e.Err)
	}
	return fmt.Sprintf("siemfeed: authentication failed: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *AuthenticationError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// NotFoundError indicates the requested resource was not found (404).
type NotFoundError struct {
	APIError
	ResourceType string
	ResourceID   string
}

func (e *NotFoundError) Error() string {
	if e.ResourceType != "" && e.ResourceID != "" {
		return fmt.Sprintf("siemfeed: %s not found: %s", e.ResourceType, e.ResourceID)
	}
	return fmt.Sprintf("siemfeed: resource not found: %s", e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *NotFoundError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// ValidationError indicates caller-supplied arguments were rejected before
// any request was sent. The message is surfaced to the caller verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("siemfeed: validation error: %s", e.Message)
}

// UpstreamError indicates the vendor accepted the request but reported a
// query failure in the response envelope. Reason carries the vendor's own
// wording, unchanged.
type UpstreamError struct {
	Reason string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("siemfeed: error in query: %s", e.Reason)
}

// TransportError indicates the request failed before a complete HTTP
// response was read: dial and TLS failures, timeouts, cancelled contexts
// and truncated response bodies.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("siemfeed: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RateLimitError indicates the API rate limit was exceeded (429).
type RateLimitError struct {
	APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("siemfeed: rate limit exceeded, retry after %s", e.RetryAfter)
	}
	return "siemfeed: rate limit exceeded"
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *RateLimitError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// ServerError indicates an internal server error (5xx).
type ServerError struct {
	APIError
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("siemfeed: server error %d: %s", e.StatusCode, e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *ServerError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}
