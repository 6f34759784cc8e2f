// Package pager implements the persisted paginated cache: it walks a remote
// list one page at a time and mirrors everything fetched so far into a
// key-value store, so a restart resumes after the last fetched page.
package pager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/maruel/pagetable/internal/kvstore"
	"github.com/maruel/pagetable/internal/record"
	"github.com/maruel/pagetable/internal/remote"
)

// Store keys.
const (
	KeyOffset = "pageNumber"
	KeyData   = "data"
)

// DefaultPageSize is the number of records requested per page.
const DefaultPageSize = 30

// ErrStorageCorruption marks a persisted value that could not be parsed. It
// is only logged; both keys are then treated as absent, and the next
// persisted page overwrites them.
var ErrStorageCorruption = errors.New("persisted state is corrupt")

// Config configures a Cache.
type Config struct {
	PageSize int
}

// Cache tracks the page cursor and the durable mirror of fetched records.
type Cache struct {
	src      remote.Source
	store    kvstore.Store
	pageSize int

	mu     sync.Mutex
	offset int
	// discard is set when the stored state is corrupt. The stored data is
	// ignored until a page is persisted over it.
	discard bool
}

// New creates a cache, restoring the cursor from the store.
func New(ctx context.Context, cfg Config, src remote.Source, store kvstore.Store) (*Cache, error) {
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", cfg.PageSize)
	}
	c := &Cache{src: src, store: store, pageSize: cfg.PageSize}
	raw, ok, err := store.Get(ctx, KeyOffset)
	if err != nil {
		return nil, fmt.Errorf("failed to read page offset: %w", err)
	}
	if ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.discardLocked(ctx, fmt.Errorf("%w: page offset %q", ErrStorageCorruption, raw))
		} else {
			c.offset = n
		}
	}
	// Validate the data now so a corrupt value also resets the offset.
	if _, err := c.persistedLocked(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// PageSize returns the configured page size.
func (c *Cache) PageSize() int {
	return c.pageSize
}

// Offset returns the number of pages fetched so far.
func (c *Cache) Offset() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

// Persisted returns the accumulated dataset. An absent or corrupt value is
// an empty dataset.
func (c *Cache) Persisted(ctx context.Context) (record.Dataset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persistedLocked(ctx)
}

// InitialData returns the persisted dataset when it is non-empty, without
// contacting the remote. Otherwise it fetches the next page.
func (c *Cache) InitialData(ctx context.Context) (record.Dataset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ds, err := c.persistedLocked(ctx)
	if err != nil {
		return nil, err
	}
	if len(ds) > 0 {
		slog.DebugContext(ctx, "Restored persisted data", "records", len(ds), "offset", c.offset)
		return ds, nil
	}
	return c.nextPageLocked(ctx)
}

// NextPage fetches the page at the cursor, appends it to the persisted
// dataset and advances the cursor. It returns only the new page.
//
// On failure neither the cursor nor the store is modified.
func (c *Cache) NextPage(ctx context.Context) (record.Dataset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextPageLocked(ctx)
}

// Clear resets the cursor and erases the store.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	c.offset = 0
	c.discard = false
	return nil
}

func (c *Cache) nextPageLocked(ctx context.Context) (record.Dataset, error) {
	// Read first: discovering corrupt data resets the cursor.
	acc, err := c.persistedLocked(ctx)
	if err != nil {
		return nil, err
	}
	w := remote.Window{Offset: c.offset * c.pageSize, Limit: c.pageSize}
	page, err := c.src.Fetch(ctx, w)
	if err != nil {
		return nil, err
	}
	acc = append(acc, page...)
	data, err := record.Encode(acc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dataset: %w", err)
	}
	next := c.offset + 1
	err = c.store.SetMany(ctx, map[string]string{
		KeyOffset: strconv.Itoa(next),
		KeyData:   string(data),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist page: %w", err)
	}
	c.offset = next
	c.discard = false
	slog.DebugContext(ctx, "Fetched page", "offset", w.Offset, "records", len(page), "total", len(acc))
	if page == nil {
		page = record.Dataset{}
	}
	return page, nil
}

func (c *Cache) persistedLocked(ctx context.Context) (record.Dataset, error) {
	if c.discard {
		return record.Dataset{}, nil
	}
	raw, ok, err := c.store.Get(ctx, KeyData)
	if err != nil {
		return nil, fmt.Errorf("failed to read persisted data: %w", err)
	}
	if !ok {
		return record.Dataset{}, nil
	}
	ds, err := record.Decode([]byte(raw))
	if err != nil {
		c.discardLocked(ctx, fmt.Errorf("%w: %w", ErrStorageCorruption, err))
		return record.Dataset{}, nil
	}
	return ds, nil
}

// discardLocked drops the stored state: the dataset reads as empty and the
// cursor restarts at zero.
func (c *Cache) discardLocked(ctx context.Context, err error) {
	slog.WarnContext(ctx, "Ignoring persisted state", "err", err, "offset", c.offset)
	c.offset = 0
	c.discard = true
}
