package kvstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/maruel/pagetable/internal/kvstore"
	"github.com/maruel/pagetable/internal/kvstore/storetest"
)

func TestMemory(t *testing.T) {
	storetest.Run(t, func(string) (kvstore.Store, error) {
		return kvstore.NewMemory(), nil
	}, false)
}

func TestFile(t *testing.T) {
	storetest.Run(t, func(dir string) (kvstore.Store, error) {
		return kvstore.NewFile(filepath.Join(dir, "state.jsonl"))
	}, true)
}

func TestBadger(t *testing.T) {
	storetest.Run(t, func(dir string) (kvstore.Store, error) {
		return kvstore.NewBadger(filepath.Join(dir, "badger"))
	}, true)
}

func TestSQLite(t *testing.T) {
	storetest.Run(t, func(dir string) (kvstore.Store, error) {
		return kvstore.NewSQLite(context.Background(), filepath.Join(dir, "state.db"))
	}, true)
}

func TestFileCorruptLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.jsonl")
	if err := os.WriteFile(path, []byte("{not json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := kvstore.NewFile(path); err == nil {
		t.Error("expected error for corrupt state file")
	}
}

func TestFileLeavesNoTemporaries(t *testing.T) {
	dir := t.TempDir()
	s, err := kvstore.NewFile(filepath.Join(dir, "state.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = s.Close()
	}()
	for range 3 {
		if err := s.SetMany(context.Background(), map[string]string{"a": "1"}); err != nil {
			t.Fatalf("SetMany() error = %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.jsonl" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only state.jsonl, got %v", names)
	}
}

func TestMemoryClosed(t *testing.T) {
	s := kvstore.NewMemory()
	_ = s.Close()
	if _, _, err := s.Get(context.Background(), "k"); err != kvstore.ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := s.Set(context.Background(), "k", "v"); err != kvstore.ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, b := range []kvstore.Backend{kvstore.BackendMemory, kvstore.BackendFile, kvstore.BackendBadger, kvstore.BackendSQLite} {
		t.Run(string(b), func(t *testing.T) {
			s, err := kvstore.Open(context.Background(), kvstore.Config{Backend: b, Path: kvstore.DefaultPath(b, dir)})
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if err := s.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
	if _, err := kvstore.Open(context.Background(), kvstore.Config{Backend: "redis"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
