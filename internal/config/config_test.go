package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maruel/pagetable/internal/kvstore"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(Default()) error = %v", err)
	}
	if cfg.Remote.PageSize != 30 {
		t.Errorf("expected page size 30, got %d", cfg.Remote.PageSize)
	}
	if cfg.Remote.RequestTimeout != 0 {
		t.Errorf("expected no timeout by default, got %v", cfg.Remote.RequestTimeout)
	}
	if got := cfg.KVStore(); got.Backend != kvstore.BackendFile || got.Path != filepath.Join(DefaultDataDir, "state.jsonl") {
		t.Errorf("unexpected store config %+v", got)
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing file uses defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Remote.BaseURL != DefaultBaseURL {
			t.Errorf("expected default base URL, got %q", cfg.Remote.BaseURL)
		}
		if cfg.Server.RateLimit != DefaultRateLimit {
			t.Errorf("expected default rate limit, got %d", cfg.Server.RateLimit)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
data_dir: /tmp/pt
log_level: DEBUG
remote:
  base_url: http://localhost:9999/items
  page_size: 10
  request_timeout: 5s
store:
  backend: sqlite
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("expected normalized level debug, got %q", cfg.LogLevel)
		}
		if cfg.Remote.PageSize != 10 || cfg.Remote.RequestTimeout != 5*time.Second {
			t.Errorf("unexpected remote config %+v", cfg.Remote)
		}
		if got := cfg.KVStore().Path; got != filepath.Join("/tmp/pt", "state.db") {
			t.Errorf("unexpected store path %q", got)
		}
		if cfg.Pager().PageSize != 10 {
			t.Errorf("unexpected pager config %+v", cfg.Pager())
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("remote:\n  page_size: 10\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("PAGETABLE_REMOTE_PAGE_SIZE", "50")
		t.Setenv("PAGETABLE_STORE_BACKEND", "badger")
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Remote.PageSize != 50 {
			t.Errorf("expected page size 50, got %d", cfg.Remote.PageSize)
		}
		if cfg.Store.Backend != "badger" {
			t.Errorf("expected badger, got %q", cfg.Store.Backend)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("store:\n  backend: redis\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), "oneof") {
			t.Errorf("expected oneof validation error, got %v", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("remote: [\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected error for malformed YAML")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad url", func(c *Config) { c.Remote.BaseURL = "not a url" }},
		{"negative page size", func(c *Config) { c.Remote.PageSize = -1 }},
		{"negative timeout", func(c *Config) { c.Remote.RequestTimeout = -time.Second }},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Default()
	cfg.Remote.RequestTimeout = 3 * time.Second
	cfg.Store.Backend = "badger"
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Remote.RequestTimeout != 3*time.Second || got.Store.Backend != "badger" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestSchema(t *testing.T) {
	b, err := json.Marshal(Schema())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"base_url"`, `"page_size"`, `"sqlite"`} {
		if !strings.Contains(string(b), want) {
			t.Errorf("expected %s in schema", want)
		}
	}
}
