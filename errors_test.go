package siemfeed_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	siemfeed "github.com/tphakala/go-siemfeed"
)

func TestAPIError(t *testing.T) {
	t.Run("Error without request ID", func(t *testing.T) {
		err := &siemfeed.APIError{
			StatusCode: 500,
			Message:    "internal error",
		}
		assert.Equal(t, "siemfeed: API error 500: internal error", err.Error())
	})

	t.Run("Error with request ID", func(t *testing.T) {
		err := &siemfeed.APIError{
			StatusCode: 500,
			Message:    "internal error",
			RequestID:  "req-123",
		}
		assert.Equal(t, "siemfeed: API error 500: internal error (request_id=req-123)", err.Error())
	})
}

func TestAuthenticationError(t *testing.T) {
	t.Run("with API message", func(t *testing.T) {
		err := &siemfeed.AuthenticationError{
			APIError: siemfeed.APIError{
				StatusCode: 401,
				Message:    "invalid credentials",
			},
		}
		assert.Equal(t, "siemfeed: authentication failed: invalid credentials", err.Error())

		var apiErr *siemfeed.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 401, apiErr.StatusCode)
	})

	t.Run("with wrapped cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := &siemfeed.AuthenticationError{Err: cause}

		assert.Equal(t, "siemfeed: authentication failed: connection refused", err.Error())
		assert.ErrorIs(t, err, cause)
	})
}

func TestValidationError(t *testing.T) {
	err := &siemfeed.ValidationError{Message: "'limit' must be a positive integer"}
	assert.Equal(t, "siemfeed: validation error: 'limit' must be a positive integer", err.Error())
}

func TestUpstreamError(t *testing.T) {
	err := &siemfeed.UpstreamError{Reason: "parsing_exception"}
	assert.Equal(t, "siemfeed: error in query: parsing_exception", err.Error())
}

func TestTransportError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &siemfeed.TransportError{Op: "sending request", Err: cause}

	assert.Equal(t, "siemfeed: sending request: dial tcp: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestNotFoundError(t *testing.T) {
	t.Run("with resource info", func(t *testing.T) {
		err := &siemfeed.NotFoundError{
			APIError:     siemfeed.APIError{StatusCode: 404},
			ResourceType: "profile",
			ResourceID:   "default",
		}
		assert.Equal(t, "siemfeed: profile not found: default", err.Error())
	})

	t.Run("without resource info", func(t *testing.T) {
		err := &siemfeed.NotFoundError{
			APIError: siemfeed.APIError{
				StatusCode: 404,
				Message:    "not found",
			},
		}
		assert.Equal(t, "siemfeed: resource not found: not found", err.Error())
	})
}

func TestRateLimitError(t *testing.T) {
	t.Run("with retry-after", func(t *testing.T) {
		err := &siemfeed.RateLimitError{
			APIError:   siemfeed.APIError{StatusCode: 429},
			RetryAfter: 30 * time.Second,
		}
		assert.Equal(t, "siemfeed: rate limit exceeded, retry after 30s", err.Error())
	})

	t.Run("without retry-after", func(t *testing.T) {
		err := &siemfeed.RateLimitError{
			APIError: siemfeed.APIError{StatusCode: 429},
		}
		assert.Equal(t, "siemfeed: rate limit exceeded", err.Error())
	})
}

func TestServerError(t *testing.T) {
	err := &siemfeed.ServerError{
		APIError: siemfeed.APIError{
			StatusCode: 503,
			Message:    "service unavailable",
		},
	}
	assert.Equal(t, "siemfeed: server error 503: service unavailable", err.Error())
}

func TestErrorsAs(t *testing.T) {
	// Every API-derived error type must be detectable as *APIError.
	tests := []struct {
		name string
		err  error
	}{
		{"AuthenticationError", &siemfeed.AuthenticationError{APIError: siemfeed.APIError{StatusCode: 401}}},
		{"NotFoundError", &siemfeed.NotFoundError{APIError: siemfeed.APIError{StatusCode: 404}}},
		{"RateLimitError", &siemfeed.RateLimitError{APIError: siemfeed.APIError{StatusCode: 429}}},
		{"ServerError", &siemfeed.ServerError{APIError: siemfeed.APIError{StatusCode: 500}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apiErr *siemfeed.APIError
			require.ErrorAs(t, tt.err, &apiErr, "should be detectable as APIError")
		})
	}
}
