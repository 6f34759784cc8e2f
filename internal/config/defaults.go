package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/maruel/pagetable/internal/pager"
)

// Default values.
const (
	DefaultDataDir   = "./data"
	DefaultLogLevel  = "info"
	DefaultBaseURL   = "https://markdelokotestjs.herokuapp.com/people"
	DefaultBackend   = "file"
	DefaultHTTP      = "localhost:8080"
	DefaultRateLimit = 120
	DefaultUserAgent = "pagetable"
)

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{Server: ServerConfig{RateLimit: DefaultRateLimit}}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero values and normalizes case.
//
// RequestTimeout, RequestsPerSecond and RateLimit keep their zero value,
// which disables them.
func ApplyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.Remote.BaseURL == "" {
		cfg.Remote.BaseURL = DefaultBaseURL
	}
	if cfg.Remote.PageSize == 0 {
		cfg.Remote.PageSize = pager.DefaultPageSize
	}
	if cfg.Remote.UserAgent == "" {
		cfg.Remote.UserAgent = DefaultUserAgent
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultBackend
	}
	cfg.Store.Backend = strings.ToLower(cfg.Store.Backend)
	if cfg.Server.HTTP == "" {
		cfg.Server.HTTP = DefaultHTTP
	}
}

// registerDefaults makes every key known to viper so that environment
// variables are picked up even without a config file.
func registerDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("remote.base_url", DefaultBaseURL)
	v.SetDefault("remote.page_size", pager.DefaultPageSize)
	v.SetDefault("remote.request_timeout", "0s")
	v.SetDefault("remote.requests_per_second", 0)
	v.SetDefault("remote.user_agent", DefaultUserAgent)
	v.SetDefault("store.backend", DefaultBackend)
	v.SetDefault("store.path", "")
	v.SetDefault("server.http", DefaultHTTP)
	v.SetDefault("server.rate_limit", DefaultRateLimit)
}
