// Package config loads the pagetable configuration from a YAML file and
// PAGETABLE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/maruel/pagetable/internal/kvstore"
	"github.com/maruel/pagetable/internal/pager"
	"github.com/maruel/pagetable/internal/remote"
)

// EnvPrefix prefixes every environment override, e.g.
// PAGETABLE_REMOTE_PAGE_SIZE=50.
const EnvPrefix = "PAGETABLE"

// Config is the whole configuration.
type Config struct {
	DataDir  string       `mapstructure:"data_dir" yaml:"data_dir" validate:"required" jsonschema:"description=Directory holding the state store and logs"`
	LogLevel string       `mapstructure:"log_level" yaml:"log_level" validate:"required,oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Remote   RemoteConfig `mapstructure:"remote" yaml:"remote"`
	Store    StoreConfig  `mapstructure:"store" yaml:"store"`
	Server   ServerConfig `mapstructure:"server" yaml:"server"`
}

// RemoteConfig describes the paginated endpoint.
type RemoteConfig struct {
	BaseURL  string `mapstructure:"base_url" yaml:"base_url" validate:"required,url" jsonschema:"description=List endpoint; limit and offset are appended as query parameters"`
	PageSize int    `mapstructure:"page_size" yaml:"page_size" validate:"gt=0,lte=1000" jsonschema:"minimum=1,maximum=1000"`
	// RequestTimeout bounds one fetch. Zero disables the timeout.
	RequestTimeout    time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" validate:"gte=0" jsonschema:"type=string,description=Go duration; 0s means no timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"gte=0" jsonschema:"description=0 means unlimited"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend" validate:"required,oneof=file badger sqlite memory" jsonschema:"enum=file,enum=badger,enum=sqlite,enum=memory"`
	Path    string `mapstructure:"path" yaml:"path,omitempty" jsonschema:"description=Defaults to a backend specific location under data_dir"`
}

// ServerConfig configures "pagetable serve".
type ServerConfig struct {
	HTTP      string `mapstructure:"http" yaml:"http" validate:"required" jsonschema:"description=Listen address"`
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit" validate:"gte=0" jsonschema:"description=API requests per minute per client IP; 0 disables"`
}

// KVStore returns the store configuration with its path resolved.
func (c *Config) KVStore() kvstore.Config {
	b := kvstore.Backend(c.Store.Backend)
	p := c.Store.Path
	if p == "" {
		p = kvstore.DefaultPath(b, c.DataDir)
	}
	return kvstore.Config{Backend: b, Path: p}
}

// RemoteSource returns the HTTP source configuration.
func (c *Config) RemoteSource() remote.Config {
	return remote.Config{
		BaseURL:           c.Remote.BaseURL,
		Timeout:           c.Remote.RequestTimeout,
		RequestsPerSecond: c.Remote.RequestsPerSecond,
		UserAgent:         c.Remote.UserAgent,
	}
}

// Pager returns the page cache configuration.
func (c *Config) Pager() pager.Config {
	return pager.Config{PageSize: c.Remote.PageSize}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/pagetable/config.yaml or its
// platform equivalent.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "pagetable", "config.yaml")
}

// Load reads the configuration.
//
// Precedence, highest first: environment, configFile, defaults. An empty
// configFile means DefaultConfigPath; a missing file is not an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	registerDefaults(v)

	if configFile == "" {
		configFile = DefaultConfigPath()
	}
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the struct tags.
func Validate(cfg *Config) error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(cfg)
}

// Save writes cfg as YAML, creating the parent directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Schema returns the JSON schema of the configuration file.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	s := r.Reflect(&Config{})
	s.Title = "pagetable configuration"
	return s
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook accepts "30s" style strings and plain nanoseconds.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			if v == "" || v == "0" {
				return time.Duration(0), nil
			}
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}
