package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"

	"github.com/maruel/pagetable/internal/kvstore"
	"github.com/maruel/pagetable/internal/pager"
	"github.com/maruel/pagetable/internal/record"
	"github.com/maruel/pagetable/internal/remote"
	"github.com/maruel/pagetable/internal/table"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// blockingSource blocks every fetch until release is closed.
type blockingSource struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
	fail    error
}

func newBlockingSource() *blockingSource {
	return &blockingSource{started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (b *blockingSource) Fetch(ctx context.Context, w remote.Window) (record.Dataset, error) {
	b.calls.Add(1)
	b.started <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if b.fail != nil {
		return nil, b.fail
	}
	ds := record.Dataset{}
	for i := range w.Limit {
		ds = append(ds, record.FromPairs("id", float64(w.Offset+i)))
	}
	return ds, nil
}

// instantSource answers immediately.
type instantSource struct {
	fail error
}

func (s *instantSource) Fetch(_ context.Context, w remote.Window) (record.Dataset, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	ds := record.Dataset{}
	for i := range w.Limit {
		ds = append(ds, record.FromPairs("id", float64(w.Offset+i)))
	}
	return ds, nil
}

type fakeMetrics struct {
	mu                      sync.Mutex
	loaded, failed, dropped int
}

func (f *fakeMetrics) PageLoaded(int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded++
}

func (f *fakeMetrics) LoadFailed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed++
}

func (f *fakeMetrics) SignalDropped() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped++
}

func newCoordinator(t *testing.T, src remote.Source, store kvstore.Store, n Notifier, m Metrics) (*Coordinator, *pager.Cache) {
	t.Helper()
	c, err := pager.New(t.Context(), pager.Config{PageSize: 2}, src, store)
	if err != nil {
		t.Fatal(err)
	}
	return New(c, table.New(), n, m), c
}

func TestBusySignalsAreDropped(t *testing.T) {
	ctx := context.Background()
	src := newBlockingSource()
	m := &fakeMetrics{}
	co, cache := newCoordinator(t, src, kvstore.NewMemory(), nil, m)

	done := make(chan Result)
	go func() {
		res, err := co.OnScrollProximity(ctx)
		if err != nil {
			t.Errorf("OnScrollProximity() error = %v", err)
		}
		done <- res
	}()
	<-src.started
	if !co.Loading() {
		t.Fatal("expected Loading() while fetch is in flight")
	}
	if !co.View().ShowTable {
		t.Error("expected the table to be visible while loading")
	}

	for range 5 {
		res, err := co.OnScrollProximity(ctx)
		if err != nil || !res.Dropped {
			t.Errorf("expected dropped signal, got (%+v, %v)", res, err)
		}
	}
	if res, _ := co.InitialLoad(ctx); !res.Dropped {
		t.Error("expected InitialLoad to be dropped while busy")
	}

	close(src.release)
	res := <-done
	if res.Dropped || res.Loaded != 2 {
		t.Errorf("unexpected result %+v", res)
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}
	if cache.Offset() != 1 {
		t.Errorf("expected offset 1, got %d", cache.Offset())
	}
	if co.Loading() {
		t.Error("busy flag not cleared")
	}
	if m.dropped != 6 || m.loaded != 1 {
		t.Errorf("unexpected metrics %+v", m)
	}
}

func TestFailureClearsBusyAndNotifies(t *testing.T) {
	ctx := context.Background()
	src := &instantSource{fail: &remote.FetchError{Status: 404}}
	var notified []error
	n := NotifierFunc(func(_ context.Context, err error) {
		notified = append(notified, err)
	})
	m := &fakeMetrics{}
	co, cache := newCoordinator(t, src, kvstore.NewMemory(), n, m)

	_, err := co.OnScrollProximity(ctx)
	var fe *remote.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if co.Loading() {
		t.Error("busy flag not cleared after failure")
	}
	if co.State().Len() != 0 {
		t.Error("table mutated after failure")
	}
	if cache.Offset() != 0 {
		t.Error("offset advanced after failure")
	}
	if len(notified) != 1 || notified[0].Error() != "HTTP error: 404" {
		t.Errorf("unexpected notifications %v", notified)
	}
	if m.failed != 1 {
		t.Errorf("expected 1 failure, got %d", m.failed)
	}

	src.fail = nil
	res, err := co.OnScrollProximity(ctx)
	if err != nil || res.Loaded != 2 {
		t.Fatalf("expected recovery, got (%+v, %v)", res, err)
	}
}

func TestInitialLoadThenScroll(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	co, _ := newCoordinator(t, &instantSource{}, store, nil, nil)
	if _, err := co.InitialLoad(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := co.OnScrollProximity(ctx); err != nil {
		t.Fatal(err)
	}
	if co.State().Len() != 4 {
		t.Fatalf("expected 4 rows, got %d", co.State().Len())
	}

	// A fresh process restores from the store without duplicating.
	co2, cache2 := newCoordinator(t, &instantSource{fail: errors.New("must not fetch")}, store, nil, nil)
	res, err := co2.InitialLoad(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Loaded != 4 || co2.State().Len() != 4 || cache2.Offset() != 2 {
		t.Errorf("unexpected restore: %+v len=%d offset=%d", res, co2.State().Len(), cache2.Offset())
	}
}

func TestRemoveThenScroll(t *testing.T) {
	ctx := context.Background()
	co, _ := newCoordinator(t, &instantSource{}, kvstore.NewMemory(), nil, nil)
	if _, err := co.InitialLoad(ctx); err != nil {
		t.Fatal(err)
	}
	co.State().RemoveAt(0)
	if _, err := co.OnScrollProximity(ctx); err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, r := range co.State().Rows() {
		got = append(got, r.Record.String("id"))
	}
	if len(got) != 3 || got[0] != "1" || got[1] != "2" || got[2] != "3" {
		t.Errorf("removal must not shift the cursor, got %v", got)
	}
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	co, cache := newCoordinator(t, &instantSource{}, store, nil, nil)
	if _, err := co.InitialLoad(ctx); err != nil {
		t.Fatal(err)
	}
	if err := co.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	if co.State().Len() != 0 || cache.Offset() != 0 {
		t.Errorf("expected empty state, got len=%d offset=%d", co.State().Len(), cache.Offset())
	}
	if _, ok, _ := store.Get(ctx, pager.KeyData); ok {
		t.Error("expected persisted data erased")
	}
	if co.View().ShowTable {
		t.Error("expected table hidden after clear")
	}
}

func TestConcurrentTriggers(t *testing.T) {
	ctx := context.Background()
	co, cache := newCoordinator(t, &instantSource{}, kvstore.NewMemory(), nil, nil)
	var wg sync.WaitGroup
	var loaded atomic.Int32
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := co.OnScrollProximity(ctx)
			if err != nil {
				t.Errorf("OnScrollProximity() error = %v", err)
				return
			}
			if !res.Dropped {
				loaded.Add(1)
			}
		}()
	}
	wg.Wait()
	n := int(loaded.Load())
	if n < 1 {
		t.Fatal("expected at least one load")
	}
	if cache.Offset() != n || co.State().Len() != 2*n {
		t.Errorf("offset %d and rows %d inconsistent with %d loads", cache.Offset(), co.State().Len(), n)
	}
}

func TestCanceledLoad(t *testing.T) {
	src := newBlockingSource()
	co, cache := newCoordinator(t, src, kvstore.NewMemory(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		_, err := co.OnScrollProximity(ctx)
		done <- err
	}()
	<-src.started
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if co.Loading() || cache.Offset() != 0 {
		t.Error("canceled load must leave state unchanged")
	}
}
