// Package storetest is a conformance suite shared by all kvstore backends.
package storetest

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/maruel/pagetable/internal/kvstore"
)

// Opener opens the backend located in dir. Opening the same dir twice must
// yield the same content for durable backends.
type Opener func(dir string) (kvstore.Store, error)

// Run runs the suite. durable enables the reopen checks.
func Run(t *testing.T, open Opener, durable bool) {
	t.Run("Get/Missing", func(t *testing.T) {
		s := mustOpen(t, open, t.TempDir())
		if v, ok, err := s.Get(t.Context(), "nope"); err != nil || ok || v != "" {
			t.Errorf("Get(missing) = (%q, %v, %v), want (\"\", false, nil)", v, ok, err)
		}
	})

	t.Run("Set/Get", func(t *testing.T) {
		ctx := t.Context()
		s := mustOpen(t, open, t.TempDir())
		if err := s.Set(ctx, "k", "v1"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := s.Set(ctx, "k", "v2"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		expectValue(t, s, "k", "v2")
	})

	t.Run("SetMany", func(t *testing.T) {
		ctx := t.Context()
		s := mustOpen(t, open, t.TempDir())
		if err := s.Set(ctx, "a", "old"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := s.SetMany(ctx, map[string]string{"a": "1", "b": "2"}); err != nil {
			t.Fatalf("SetMany() error = %v", err)
		}
		expectValue(t, s, "a", "1")
		expectValue(t, s, "b", "2")
	})

	t.Run("LargeValue", func(t *testing.T) {
		s := mustOpen(t, open, t.TempDir())
		big := strings.Repeat("x", 1<<20)
		if err := s.Set(t.Context(), "big", big); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		v, ok, err := s.Get(t.Context(), "big")
		if err != nil || !ok || len(v) != len(big) {
			t.Errorf("Get(big) = (len %d, %v, %v)", len(v), ok, err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		ctx := t.Context()
		s := mustOpen(t, open, t.TempDir())
		if err := s.SetMany(ctx, map[string]string{"a": "1", "b": "2"}); err != nil {
			t.Fatalf("SetMany() error = %v", err)
		}
		if err := s.Clear(ctx); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		for _, k := range []string{"a", "b"} {
			if _, ok, err := s.Get(ctx, k); err != nil || ok {
				t.Errorf("Get(%q) after Clear = (%v, %v), want absent", k, ok, err)
			}
		}
		if err := s.Set(ctx, "a", "3"); err != nil {
			t.Fatalf("Set() after Clear error = %v", err)
		}
		expectValue(t, s, "a", "3")
	})

	t.Run("Concurrent", func(t *testing.T) {
		ctx := t.Context()
		s := mustOpen(t, open, t.TempDir())
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				k := string(rune('a' + i))
				if err := s.SetMany(ctx, map[string]string{k: k, "shared": k}); err != nil {
					t.Errorf("SetMany() error = %v", err)
				}
				if _, _, err := s.Get(ctx, "shared"); err != nil {
					t.Errorf("Get() error = %v", err)
				}
			}()
		}
		wg.Wait()
		for i := range 8 {
			k := string(rune('a' + i))
			expectValue(t, s, k, k)
		}
	})

	if !durable {
		return
	}

	t.Run("Reopen", func(t *testing.T) {
		ctx := context.Background()
		dir := t.TempDir()
		s, err := open(dir)
		if err != nil {
			t.Fatalf("open() error = %v", err)
		}
		if err := s.SetMany(ctx, map[string]string{"pageNumber": "2", "data": `[{"a":1}]`}); err != nil {
			t.Fatalf("SetMany() error = %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		s = mustOpen(t, open, dir)
		expectValue(t, s, "pageNumber", "2")
		expectValue(t, s, "data", `[{"a":1}]`)
	})

	t.Run("ReopenAfterClear", func(t *testing.T) {
		ctx := context.Background()
		dir := t.TempDir()
		s, err := open(dir)
		if err != nil {
			t.Fatalf("open() error = %v", err)
		}
		if err := s.Set(ctx, "k", "v"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := s.Clear(ctx); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		s = mustOpen(t, open, dir)
		if _, ok, err := s.Get(ctx, "k"); err != nil || ok {
			t.Errorf("Get(k) after reopen = (%v, %v), want absent", ok, err)
		}
	})
}

func mustOpen(t *testing.T, open Opener, dir string) kvstore.Store {
	t.Helper()
	s, err := open(dir)
	if err != nil {
		t.Fatalf("open(%s) error = %v", dir, err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func expectValue(t *testing.T, s kvstore.Store, key, want string) {
	t.Helper()
	got, ok, err := s.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%q) error = %v", key, err)
	}
	if !ok {
		t.Fatalf("Get(%q): key absent", key)
	}
	if got != want {
		t.Errorf("Get(%q) = %q, want %q", key, got, want)
	}
}
