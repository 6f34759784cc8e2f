// Package loader serializes page loads triggered by the user and by scroll
// proximity, and feeds their results into the table state.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/maruel/pagetable/internal/record"
	"github.com/maruel/pagetable/internal/table"
)

// Cache is the subset of pager.Cache used by the coordinator.
type Cache interface {
	InitialData(ctx context.Context) (record.Dataset, error)
	NextPage(ctx context.Context) (record.Dataset, error)
	Clear(ctx context.Context) error
}

// Notifier surfaces a failed load to the user.
type Notifier interface {
	Notify(ctx context.Context, err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, err error)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, err error) {
	f(ctx, err)
}

// Metrics receives load outcomes. A nil Metrics is valid.
type Metrics interface {
	PageLoaded(records int)
	LoadFailed()
	SignalDropped()
}

// Kind names the trigger of a load.
type Kind string

// Load kinds.
const (
	KindInitial Kind = "initial"
	KindScroll  Kind = "scroll"
)

// Result describes one trigger.
type Result struct {
	Kind Kind `json:"kind"`
	// Loaded is the number of records appended to the table.
	Loaded int `json:"loaded"`
	// Dropped is true when another load was in flight and nothing ran.
	Dropped bool `json:"dropped"`
}

// Coordinator gates loads behind a single busy flag. Triggers that arrive
// while busy are dropped, never queued.
type Coordinator struct {
	cache    Cache
	state    *table.State
	notifier Notifier
	metrics  Metrics

	busy atomic.Bool
}

// New returns a coordinator. notifier and metrics may be nil.
func New(cache Cache, state *table.State, notifier Notifier, metrics Metrics) *Coordinator {
	return &Coordinator{cache: cache, state: state, notifier: notifier, metrics: metrics}
}

// Loading reports whether a load is in flight.
func (c *Coordinator) Loading() bool {
	return c.busy.Load()
}

// State returns the table state fed by the coordinator.
func (c *Coordinator) State() *table.State {
	return c.state
}

// View is State().View(Loading()).
func (c *Coordinator) View() table.View {
	return c.state.View(c.Loading())
}

// InitialLoad loads the persisted data, or the first page when there is
// none.
func (c *Coordinator) InitialLoad(ctx context.Context) (Result, error) {
	return c.run(ctx, KindInitial, c.cache.InitialData)
}

// OnScrollProximity loads the next page.
func (c *Coordinator) OnScrollProximity(ctx context.Context) (Result, error) {
	return c.run(ctx, KindScroll, c.cache.NextPage)
}

// ClearAll erases the persisted state and the table. It does not wait for
// an in-flight load.
func (c *Coordinator) ClearAll(ctx context.Context) error {
	if err := c.cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	c.state.Clear()
	slog.InfoContext(ctx, "Cleared data")
	return nil
}

func (c *Coordinator) run(ctx context.Context, kind Kind, load func(context.Context) (record.Dataset, error)) (Result, error) {
	res := Result{Kind: kind}
	if !c.busy.CompareAndSwap(false, true) {
		slog.DebugContext(ctx, "Load dropped", "kind", kind)
		if c.metrics != nil {
			c.metrics.SignalDropped()
		}
		res.Dropped = true
		return res, nil
	}
	defer c.busy.Store(false)

	page, err := load(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Load failed", "kind", kind, "err", err)
		if c.metrics != nil {
			c.metrics.LoadFailed()
		}
		if c.notifier != nil {
			c.notifier.Notify(ctx, err)
		}
		return res, err
	}
	c.state.AppendPage(page)
	res.Loaded = len(page)
	if c.metrics != nil {
		c.metrics.PageLoaded(len(page))
	}
	slog.InfoContext(ctx, "Loaded", "kind", kind, "records", len(page), "total", c.state.Len())
	return res, nil
}
