package siemfeed

import (
	"context"
	"encoding/json"
	"fmt"
)

// StateStore persists small JSON documents across process invocations.
// Implementations live in package statestore; anything that can hold a
// few hundred bytes per key durably will do.
//
// Get reports ok=false, not an error, when the key has never been set.
type StateStore interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// State keys are namespaced per profile so several tenant configurations
// can share one store.
const (
	cursorKeySuffix     = "/cursor"
	credentialKeySuffix = "/token"
)

// CursorKey returns the state key holding the fetch watermark for profile.
func CursorKey(profile string) string {
	return profile + cursorKeySuffix
}

// CredentialKey returns the state key holding the cached bearer credential
// for profile.
func CredentialKey(profile string) string {
	return profile + credentialKeySuffix
}

// LoadCursor reads the persisted watermark for profile. A profile that has
// never fetched yields the zero Cursor.
func LoadCursor(ctx context.Context, store StateStore, profile string) (Cursor, error) {
	var cursor Cursor
	raw, ok, err := store.Get(ctx, CursorKey(profile))
	if err != nil {
		return Cursor{}, fmt.Errorf("reading cursor for %q: %w", profile, err)
	}
	if !ok {
		return Cursor{}, nil
	}
	if err := json.Unmarshal(raw, &cursor); err != nil {
		return Cursor{}, fmt.Errorf("decoding cursor for %q: %w", profile, err)
	}
	return cursor, nil
}

// SaveCursor persists the watermark for profile. Callers persist only after
// the fetched events are safely handed off, so a failed delivery replays.
func SaveCursor(ctx context.Context, store StateStore, profile string, cursor Cursor) error {
	raw, err := json.Marshal(cursor)
	if err != nil {
		return fmt.Errorf("encoding cursor for %q: %w", profile, err)
	}
	if err := store.Set(ctx, CursorKey(profile), raw); err != nil {
		return fmt.Errorf("writing cursor for %q: %w", profile, err)
	}
	return nil
}
