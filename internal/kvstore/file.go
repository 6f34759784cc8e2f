package kvstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// entry is one line of the JSONL state file.
type entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// File is a Store kept entirely in memory and mirrored to a JSONL file.
//
// Every mutation rewrites the whole file into a temporary sibling and
// renames it over the original, so a crash leaves either the old or the new
// content.
type File struct {
	path string

	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

// NewFile opens the store at path, loading its content if it exists.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f := &File{path: path, data: make(map[string]string)}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) load() error {
	fh, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open state file %s: %w", f.path, err)
	}
	defer func() {
		_ = fh.Close()
	}()

	scanner := bufio.NewScanner(fh)
	// A single value holds the whole accumulated dataset.
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e entry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("failed to unmarshal entry in %s: %w", f.path, err)
		}
		f.data[e.Key] = e.Value
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read state file %s: %w", f.path, err)
	}
	return nil
}

// Get implements Store.
func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return "", false, ErrClosed
	}
	v, ok := f.data[key]
	return v, ok, nil
}

// Set implements Store.
func (f *File) Set(ctx context.Context, key, value string) error {
	return f.SetMany(ctx, map[string]string{key: value})
}

// SetMany implements Store.
func (f *File) SetMany(_ context.Context, entries map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	next := maps.Clone(f.data)
	maps.Copy(next, entries)
	if err := f.persist(next); err != nil {
		return err
	}
	f.data = next
	return nil
}

// Clear implements Store.
func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	f.data = make(map[string]string)
	return nil
}

// Close implements Store.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *File) persist(data map[string]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, k := range slices.Sorted(maps.Keys(data)) {
		b, err := json.Marshal(entry{Key: k, Value: data[k]})
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("failed to write entry: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		committed = true
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	committed = true
	return nil
}
