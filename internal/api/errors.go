package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	siemfeed "github.com/tphakala/go-siemfeed"
)

// ParseError converts an HTTP error response into the matching typed error.
func ParseError(statusCode int, body []byte, headers http.Header) error {
	base := siemfeed.APIError{
		StatusCode: statusCode,
		RequestID:  headers.Get("X-Request-ID"),
	}

	// Try to parse structured JSON error response
	if err := json.Unmarshal(body, &base); err != nil {
		// Fallback to raw body if not valid JSON
		base.Message = string(body)
	}
	base.StatusCode = statusCode

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &siemfeed.AuthenticationError{APIError: base}
	case statusCode == http.StatusNotFound:
		return &siemfeed.NotFoundError{APIError: base}
	case statusCode == http.StatusTooManyRequests:
		return &siemfeed.RateLimitError{
			APIError:   base,
			RetryAfter: parseRetryAfter(headers.Get("Retry-After")),
		}
	case statusCode >= http.StatusInternalServerError:
		return &siemfeed.ServerError{APIError: base}
	default:
		return &base
	}
}

// parseRetryAfter parses the Retry-After header value.
// It handles both seconds (integer) and HTTP-date formats.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	// Try parsing as seconds first
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second
	}

	// Try parsing as HTTP-date (RFC 1123)
	if t, err := time.Parse(time.RFC1123, value); err == nil {
		duration := time.Until(t)
		if duration > 0 {
			return duration
		}
	}

	return 0
}
