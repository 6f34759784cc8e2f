package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	badgerdb "github.com/dgraph-io/badger/v4"
)

// Badger is a Store on an embedded badger database.
type Badger struct {
	db *badgerdb.DB
}

// NewBadger opens (or creates) the badger database in dir.
func NewBadger(dir string) (*Badger, error) {
	if dir == "" {
		return nil, fmt.Errorf("badger store directory is required")
	}
	opts := badgerdb.DefaultOptions(dir).WithLogger(badgerLogger{}).WithLoggingLevel(badgerdb.WARNING)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &Badger{db: db}, nil
}

// Get implements Store.
func (b *Badger) Get(_ context.Context, key string) (string, bool, error) {
	var value string
	found := false
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			found = true
			return nil
		})
	})
	if err != nil {
		return "", false, wrapBadger("read", err)
	}
	return value, found, nil
}

// Set implements Store.
func (b *Badger) Set(ctx context.Context, key, value string) error {
	return b.SetMany(ctx, map[string]string{key: value})
}

// SetMany implements Store.
func (b *Badger) SetMany(_ context.Context, entries map[string]string) error {
	err := b.db.Update(func(txn *badgerdb.Txn) error {
		for k, v := range entries {
			if err := txn.Set([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapBadger("write", err)
	}
	return nil
}

// Clear implements Store.
func (b *Badger) Clear(_ context.Context) error {
	if err := b.db.DropAll(); err != nil {
		return wrapBadger("clear", err)
	}
	return nil
}

// Close implements Store.
func (b *Badger) Close() error {
	return b.db.Close()
}

func wrapBadger(op string, err error) error {
	if errors.Is(err, badgerdb.ErrDBClosed) {
		return ErrClosed
	}
	return fmt.Errorf("failed to %s badger database: %w", op, err)
}

// badgerLogger routes badger's logs to slog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	slog.Error("badger", "msg", fmt.Sprintf(format, args...))
}

func (badgerLogger) Warningf(format string, args ...any) {
	slog.Warn("badger", "msg", fmt.Sprintf(format, args...))
}

func (badgerLogger) Infof(format string, args ...any) {
	slog.Debug("badger", "msg", fmt.Sprintf(format, args...))
}

func (badgerLogger) Debugf(format string, args ...any) {
	slog.Debug("badger", "msg", fmt.Sprintf(format, args...))
}
