package siemfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ExpiryMargin is shaved off every vendor-declared token lifetime so a
// token is refreshed before it can expire mid-request.
const ExpiryMargin = 60 * time.Second

// Credential is a cached bearer token with its expiry as a Unix timestamp.
// The wire format is shared with earlier collectors, so existing cached
// documents keep working.
type Credential struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
}

// Valid reports whether the token is still usable at now.
func (c Credential) Valid(now time.Time) bool {
	return c.Token != "" && c.Expires > 0 && now.Unix() < c.Expires
}

// TokenExchange obtains a fresh bearer token from the vendor, returning the
// token and the lifetime the vendor declared for it.
type TokenExchange func(ctx context.Context) (token string, expiresIn time.Duration, err error)

// CredentialManager caches bearer credentials in a StateStore, keyed per
// profile, and refreshes them through a TokenExchange only when the cached
// token is missing or expired.
type CredentialManager struct {
	store  StateStore
	logger *zap.Logger
}

// NewCredentialManager returns a manager backed by store. A nil logger
// disables logging.
func NewCredentialManager(store StateStore, logger *zap.Logger) *CredentialManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialManager{store: store, logger: logger}
}

// Token returns a valid bearer token for profile, exchanging for a fresh
// one when the cache is empty or stale. Exchange failures are reported as
// *AuthenticationError.
func (m *CredentialManager) Token(ctx context.Context, profile string, exchange TokenExchange) (string, error) {
	key := CredentialKey(profile)

	var cred Credential
	raw, ok, err := m.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("reading cached credential for %q: %w", profile, err)
	}
	if ok {
		if err := json.Unmarshal(raw, &cred); err != nil {
			return "", fmt.Errorf("decoding cached credential for %q: %w", profile, err)
		}
	}

	now := time.Now()
	if cred.Valid(now) {
		m.logger.Debug("using cached token",
			zap.String("profile", profile),
			zap.Int64("expires", cred.Expires))
		return cred.Token, nil
	}

	m.logger.Debug("requesting new token", zap.String("profile", profile))
	token, expiresIn, err := exchange(ctx)
	if err != nil {
		var authErr *AuthenticationError
		if errors.As(err, &authErr) {
			return "", err
		}
		return "", &AuthenticationError{Err: err}
	}

	cred = Credential{
		Token:   token,
		Expires: now.Add(expiresIn - ExpiryMargin).Unix(),
	}
	raw, err = json.Marshal(cred)
	if err != nil {
		return "", fmt.Errorf("encoding credential for %q: %w", profile, err)
	}
	if err := m.store.Set(ctx, key, raw); err != nil {
		return "", fmt.Errorf("caching credential for %q: %w", profile, err)
	}

	m.logger.Debug("cached new token",
		zap.String("profile", profile),
		zap.Int64("expires", cred.Expires))
	return token, nil
}
