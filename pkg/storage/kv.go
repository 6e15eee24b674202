// Package storage provides the small key/value stores that back user
// preferences.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sw33tLie/galshelf/pkg/logging"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendFile   = "file"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("storage: unknown backend")

// KV is a durable string key/value store. Writes are synchronous: when Set
// or Delete returns nil the value has reached the backing medium.
type KV interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	// Location describes where the data lives, for diagnostics.
	Location() string
	Close() error
}

// Open opens the named backend at path, creating parent directories. log
// receives recovery warnings and may be nil.
func Open(backend, path string, log logging.Logger) (KV, error) {
	if path == "" {
		return nil, errors.New("storage: missing path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating directory: %w", err)
	}
	switch strings.ToLower(backend) {
	case "", BackendSQLite:
		return OpenSQLite(path)
	case BackendBolt:
		return OpenBolt(path)
	case BackendFile:
		return OpenFile(path, log)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}

// DefaultFilename returns the file name a backend uses under a config dir.
func DefaultFilename(backend string) string {
	switch strings.ToLower(backend) {
	case BackendBolt:
		return "prefs.bolt"
	case BackendFile:
		return "prefs.json"
	}
	return "prefs.db"
}
