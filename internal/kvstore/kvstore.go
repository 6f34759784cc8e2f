// Package kvstore provides the durable string key-value stores backing the
// page cache.
//
// Every backend commits SetMany atomically: either all entries become
// visible or none do.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Store is a durable string-to-string map.
type Store interface {
	// Get returns the value for key. The boolean is false when the key is
	// absent.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes a single key.
	Set(ctx context.Context, key, value string) error
	// SetMany writes all entries in one atomic commit.
	SetMany(ctx context.Context, entries map[string]string) error
	// Clear erases every key.
	Clear(ctx context.Context) error
	// Close releases the backend.
	Close() error
}

// Backend names a store implementation.
type Backend string

// Supported backends.
const (
	BackendMemory Backend = "memory"
	BackendFile   Backend = "file"
	BackendBadger Backend = "badger"
	BackendSQLite Backend = "sqlite"
)

// Config selects and locates a backend.
type Config struct {
	Backend Backend
	// Path is the file (file, sqlite) or directory (badger). Empty means
	// DefaultPath(dataDir).
	Path string
}

// DefaultPath returns the conventional location of a backend under dataDir.
func DefaultPath(b Backend, dataDir string) string {
	switch b {
	case BackendFile:
		return filepath.Join(dataDir, "state.jsonl")
	case BackendBadger:
		return filepath.Join(dataDir, "badger")
	case BackendSQLite:
		return filepath.Join(dataDir, "state.db")
	case BackendMemory:
		return ""
	default:
		return ""
	}
}

// Open creates the configured store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		return NewFile(cfg.Path)
	case BackendBadger:
		return NewBadger(cfg.Path)
	case BackendSQLite:
		return NewSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
