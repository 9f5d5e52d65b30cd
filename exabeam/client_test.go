package exabeam_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	siemfeed "github.com/tphakala/go-siemfeed"
	"github.com/tphakala/go-siemfeed/exabeam"
)

func setupTestServer(t *testing.T, handler http.HandlerFunc) *exabeam.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := exabeam.NewClient(
		exabeam.WithBaseURL(server.URL),
		exabeam.WithCredentials("test-user", "test-password"),
	)
	require.NoError(t, err)

	return client
}

// loginOK answers the session login; everything else falls through to next.
func loginOK(t *testing.T, next http.HandlerFunc) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/login" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func TestNewClient(t *testing.T) {
	t.Run("success with required options", func(t *testing.T) {
		client, err := exabeam.NewClient(
			exabeam.WithBaseURL("https://datalake.example.com"),
			exabeam.WithCredentials("user", "password"),
		)
		require.NoError(t, err)
		assert.NotNil(t, client)
		assert.Equal(t, "https://datalake.example.com", client.BaseURL())
	})

	t.Run("error without base URL", func(t *testing.T) {
		_, err := exabeam.NewClient(
			exabeam.WithCredentials("user", "password"),
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, siemfeed.ErrNoBaseURL)
	})

	t.Run("error without credentials", func(t *testing.T) {
		_, err := exabeam.NewClient(
			exabeam.WithBaseURL("https://datalake.example.com"),
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, siemfeed.ErrNoCredentials)
	})

	t.Run("error with partial credentials", func(t *testing.T) {
		_, err := exabeam.NewClient(
			exabeam.WithBaseURL("https://datalake.example.com"),
			exabeam.WithCredentials("user", ""),
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, siemfeed.ErrNoCredentials)
	})

	t.Run("success with all options", func(t *testing.T) {
		client, err := exabeam.NewClient(
			exabeam.WithBaseURL("https://datalake.example.com"),
			exabeam.WithCredentials("user", "password"),
			exabeam.WithClusterName("dc1"),
			exabeam.WithUserAgent("test-agent/1.0"),
			exabeam.WithTimeout(60*time.Second),
			exabeam.WithRateLimit(5),
		)
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("custom HTTP client gets a cookie jar", func(t *testing.T) {
		custom := &http.Client{Timeout: 90 * time.Second}
		_, err := exabeam.NewClient(
			exabeam.WithBaseURL("https://datalake.example.com"),
			exabeam.WithCredentials("user", "password"),
			exabeam.WithHTTPClient(custom),
		)
		require.NoError(t, err)
		assert.NotNil(t, custom.Jar, "session cookies need a jar to live in")
	})
}

func TestLogin(t *testing.T) {
	t.Run("sends the credential form", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/auth/login", r.URL.Path)
			assert.Equal(t, "nocheck", r.Header.Get("Csrf-Token"))
			assert.Contains(t, r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")

			require.NoError(t, r.ParseForm())
			assert.Equal(t, "test-user", r.PostFormValue("username"))
			assert.Equal(t, "test-password", r.PostFormValue("password"))

			w.WriteHeader(http.StatusOK)
		})

		require.NoError(t, client.Login(context.Background()))
	})

	t.Run("rejected credentials become an authentication error", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, err := w.Write([]byte("invalid username or password"))
			assert.NoError(t, err)
		})

		err := client.Login(context.Background())
		require.Error(t, err)

		var authErr *siemfeed.AuthenticationError
		require.ErrorAs(t, err, &authErr)
	})

	t.Run("server failures during login are authentication errors", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		err := client.Login(context.Background())
		require.Error(t, err)

		var authErr *siemfeed.AuthenticationError
		require.ErrorAs(t, err, &authErr)
	})

	t.Run("unreachable server is an authentication error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		client, err := exabeam.NewClient(
			exabeam.WithBaseURL(server.URL),
			exabeam.WithCredentials("user", "password"),
		)
		require.NoError(t, err)
		server.Close()

		err = client.Login(context.Background())
		require.Error(t, err)

		var authErr *siemfeed.AuthenticationError
		require.ErrorAs(t, err, &authErr)

		var transportErr *siemfeed.TransportError
		require.ErrorAs(t, err, &transportErr)
	})
}

func TestCheckAuth(t *testing.T) {
	t.Run("logs in then probes the check endpoint", func(t *testing.T) {
		var logins, checks int
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/auth/login":
				logins++
				w.WriteHeader(http.StatusOK)
			case "/api/auth/check":
				checks++
				assert.Equal(t, http.MethodGet, r.Method)
				w.WriteHeader(http.StatusOK)
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		})

		require.NoError(t, client.CheckAuth(context.Background()))
		assert.Equal(t, 1, logins)
		assert.Equal(t, 1, checks)
	})

	t.Run("reuses the session across calls", func(t *testing.T) {
		var logins int
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/auth/login" {
				logins++
			}
			w.WriteHeader(http.StatusOK)
		})

		ctx := context.Background()
		require.NoError(t, client.CheckAuth(ctx))
		require.NoError(t, client.CheckAuth(ctx))
		assert.Equal(t, 1, logins)
	})

	t.Run("denied check is an authentication error", func(t *testing.T) {
		client := setupTestServer(t, loginOK(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))

		err := client.CheckAuth(context.Background())
		require.Error(t, err)

		var authErr *siemfeed.AuthenticationError
		require.ErrorAs(t, err, &authErr)
	})

	t.Run("custom request headers", func(t *testing.T) {
		client := setupTestServer(t, loginOK(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "custom-value", r.Header.Get("X-Custom-Header"))
			w.WriteHeader(http.StatusOK)
		}))

		err := client.CheckAuth(context.Background(), exabeam.WithHeader("X-Custom-Header", "custom-value"))
		require.NoError(t, err)
	})
}
