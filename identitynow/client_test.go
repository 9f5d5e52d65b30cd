package identitynow_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	siemfeed "github.com/tphakala/go-siemfeed"
	"github.com/tphakala/go-siemfeed/identitynow"
)

// memStore is an in-memory StateStore for tests.
type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(ctx context.Context, key string, value []byte) error {
	s.data[key] = value
	return nil
}

func setupTestClient(t *testing.T, store siemfeed.StateStore, handler http.HandlerFunc) *identitynow.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := identitynow.NewClient(
		identitynow.WithBaseURL(server.URL),
		identitynow.WithClientCredentials("test-client-id", "test-client-secret"),
		identitynow.WithStateStore(store),
	)
	require.NoError(t, err)

	return client
}

// issueToken answers the OAuth token exchange, counting calls when calls is
// not nil; everything else falls through to next.
func issueToken(t *testing.T, calls *int, next http.HandlerFunc) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			if calls != nil {
				*calls++
			}
			err := json.NewEncoder(w).Encode(map[string]any{
				"access_token": "test-token",
				"expires_in":   3600,
			})
			assert.NoError(t, err)
			return
		}
		next(w, r)
	}
}

func emptySearch(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		err := json.NewEncoder(w).Encode([]any{})
		assert.NoError(t, err)
	}
}

func TestNewClient(t *testing.T) {
	t.Run("success with required options", func(t *testing.T) {
		client, err := identitynow.NewClient(
			identitynow.WithBaseURL("https://tenant.api.identitynow.com"),
			identitynow.WithClientCredentials("client-id", "client-secret"),
			identitynow.WithStateStore(newMemStore()),
		)
		require.NoError(t, err)
		assert.NotNil(t, client)
		assert.Equal(t, "https://tenant.api.identitynow.com", client.BaseURL())
		assert.Equal(t, "default", client.Profile())
	})

	t.Run("error without base URL", func(t *testing.T) {
		_, err := identitynow.NewClient(
			identitynow.WithClientCredentials("client-id", "client-secret"),
			identitynow.WithStateStore(newMemStore()),
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, siemfeed.ErrNoBaseURL)
	})

	t.Run("error without credentials", func(t *testing.T) {
		_, err := identitynow.NewClient(
			identitynow.WithBaseURL("https://tenant.api.identitynow.com"),
			identitynow.WithStateStore(newMemStore()),
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, siemfeed.ErrNoCredentials)
	})

	t.Run("error with partial credentials", func(t *testing.T) {
		_, err := identitynow.NewClient(
			identitynow.WithBaseURL("https://tenant.api.identitynow.com"),
			identitynow.WithClientCredentials("client-id", ""),
			identitynow.WithStateStore(newMemStore()),
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, siemfeed.ErrNoCredentials)
	})

	t.Run("error without state store", func(t *testing.T) {
		_, err := identitynow.NewClient(
			identitynow.WithBaseURL("https://tenant.api.identitynow.com"),
			identitynow.WithClientCredentials("client-id", "client-secret"),
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, siemfeed.ErrNoStateStore)
	})

	t.Run("success with all options", func(t *testing.T) {
		client, err := identitynow.NewClient(
			identitynow.WithBaseURL("https://tenant.api.identitynow.com"),
			identitynow.WithClientCredentials("client-id", "client-secret"),
			identitynow.WithStateStore(newMemStore()),
			identitynow.WithProfile("tenant-a"),
			identitynow.WithUserAgent("test-agent/1.0"),
			identitynow.WithTimeout(60*time.Second),
			identitynow.WithRateLimit(5),
		)
		require.NoError(t, err)
		assert.Equal(t, "tenant-a", client.Profile())
	})
}

func TestTokenExchange(t *testing.T) {
	t.Run("sends the client credentials grant", func(t *testing.T) {
		store := newMemStore()
		client := setupTestClient(t, store, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/oauth/token":
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "sp:scope:all", r.Header.Get("scope"))
				assert.Empty(t, r.Header.Get("Authorization"), "token exchange must not carry a bearer")
				assert.Contains(t, r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")

				require.NoError(t, r.ParseForm())
				assert.Equal(t, "test-client-id", r.PostFormValue("client_id"))
				assert.Equal(t, "client_credentials", r.PostFormValue("grant_type"))
				assert.Equal(t, "test-client-secret", r.PostFormValue("client_secret"))

				err := json.NewEncoder(w).Encode(map[string]any{
					"access_token": "fresh-token",
					"expires_in":   3600,
				})
				assert.NoError(t, err)
			case "/v3/search":
				assert.Equal(t, "Bearer fresh-token", r.Header.Get("Authorization"))
				err := json.NewEncoder(w).Encode([]any{})
				assert.NoError(t, err)
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		})

		_, err := client.SearchEvents(context.Background(), siemfeed.Cursor{}, 10)
		require.NoError(t, err)
	})

	t.Run("caches the token across clients", func(t *testing.T) {
		store := newMemStore()
		exchanges := 0

		first := setupTestClient(t, store, issueToken(t, &exchanges, emptySearch(t)))
		_, err := first.SearchEvents(context.Background(), siemfeed.Cursor{}, 1)
		require.NoError(t, err)
		require.Equal(t, 1, exchanges)

		// A second client sharing the store picks up the cached token.
		second := setupTestClient(t, store, issueToken(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			err := json.NewEncoder(w).Encode([]any{})
			assert.NoError(t, err)
		}))
		_, err = second.SearchEvents(context.Background(), siemfeed.Cursor{}, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, exchanges, "cached token should be reused")
	})

	t.Run("expired cached token is refreshed", func(t *testing.T) {
		store := newMemStore()
		stale := siemfeed.Credential{Token: "stale-token", Expires: time.Now().Add(-time.Minute).Unix()}
		raw, err := json.Marshal(stale)
		require.NoError(t, err)
		store.data[siemfeed.CredentialKey("default")] = raw

		exchanges := 0
		client := setupTestClient(t, store, issueToken(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			encErr := json.NewEncoder(w).Encode([]any{})
			assert.NoError(t, encErr)
		}))

		_, err = client.SearchEvents(context.Background(), siemfeed.Cursor{}, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, exchanges)
	})

	t.Run("rejected exchange is an authentication error", func(t *testing.T) {
		client := setupTestClient(t, newMemStore(), func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, err := w.Write([]byte(`{"message": "invalid client"}`))
			assert.NoError(t, err)
		})

		_, err := client.SearchEvents(context.Background(), siemfeed.Cursor{}, 1)
		require.Error(t, err)

		var authErr *siemfeed.AuthenticationError
		require.ErrorAs(t, err, &authErr)
	})

	t.Run("token response without a token is an authentication error", func(t *testing.T) {
		client := setupTestClient(t, newMemStore(), func(w http.ResponseWriter, r *http.Request) {
			err := json.NewEncoder(w).Encode(map[string]any{"expires_in": 3600})
			assert.NoError(t, err)
		})

		_, err := client.SearchEvents(context.Background(), siemfeed.Cursor{}, 1)
		require.Error(t, err)

		var authErr *siemfeed.AuthenticationError
		require.ErrorAs(t, err, &authErr)
	})
}
