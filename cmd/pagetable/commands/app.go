package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maruel/pagetable/internal/config"
	"github.com/maruel/pagetable/internal/kvstore"
	"github.com/maruel/pagetable/internal/loader"
	"github.com/maruel/pagetable/internal/metrics"
	"github.com/maruel/pagetable/internal/pager"
	"github.com/maruel/pagetable/internal/remote"
	"github.com/maruel/pagetable/internal/table"
)

// app is the wired object graph shared by the commands.
type app struct {
	store   kvstore.Store
	cache   *pager.Cache
	co      *loader.Coordinator
	metrics *metrics.Metrics
}

// openApp opens the store and builds the cache and coordinator. notifier
// may be nil.
func openApp(ctx context.Context, c *config.Config, notifier loader.Notifier) (*app, error) {
	src, err := remote.NewHTTPSource(c.RemoteSource())
	if err != nil {
		return nil, err
	}
	kc := c.KVStore()
	store, err := kvstore.Open(ctx, kc)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", kc.Backend, err)
	}
	cache, err := pager.New(ctx, c.Pager(), src, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	m := metrics.New()
	slog.DebugContext(ctx, "Opened store", "backend", kc.Backend, "path", kc.Path, "offset", cache.Offset())
	return &app{
		store:   store,
		cache:   cache,
		co:      loader.New(cache, table.New(), notifier, m),
		metrics: m,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
