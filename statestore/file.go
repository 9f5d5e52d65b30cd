// Package statestore provides durable siemfeed.StateStore implementations:
// a per-key JSON file layout for single-host deployments and a Postgres
// table for shared ones.
package statestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	siemfeed "github.com/tphakala/go-siemfeed"
)

// File persists each key as one JSON document under a root directory.
// Keys may contain slashes, which become subdirectories. Writes go through
// a temp file and rename, so readers never observe a torn document.
type File struct {
	dir string
}

// NewFile creates the root directory if needed and returns the store.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("statestore: directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &File{dir: dir}, nil
}

// Get reads the document stored under key. A key that has never been set
// reports ok=false.
func (s *File) Get(_ context.Context, key string) ([]byte, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading state %q: %w", key, err)
	}
	return data, true, nil
}

// Set writes the document under key atomically.
func (s *File) Set(_ context.Context, key string, value []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".state-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing state %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing state %q: %w", key, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing state %q: %w", key, err)
	}
	return nil
}

// path maps a state key to its file, refusing keys that would escape the
// root directory.
func (s *File) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("statestore: invalid key %q", key)
	}
	return filepath.Join(s.dir, filepath.FromSlash(key)+".json"), nil
}

var _ siemfeed.StateStore = (*File)(nil)
