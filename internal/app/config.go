package app

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/infrastructure/outbound/filesystem"
)

// Config holds all configurable parameters for the application. The YAML
// tags name the keys of the settings file.
type Config struct {
	RootDir  string `yaml:"root_dir"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	// SettingsFile is where the config was loaded from. It is never read
	// from the file itself.
	SettingsFile string `yaml:"-"`

	FunctionPrefix       string            `yaml:"function_prefix"`
	DefaultMessageType   string            `yaml:"default_message_type"`
	Encoding             string            `yaml:"encoding"`
	PollingInterval      time.Duration     `yaml:"polling_interval"`
	ReceiveTimeout       time.Duration     `yaml:"receive_timeout"`
	MustFindValidator    bool              `yaml:"must_find_validator"`
	HeaderNameIgnoreCase bool              `yaml:"header_name_ignore_case"`
	Namespaces           map[string]string `yaml:"namespaces"`

	MaskKeywords []string `yaml:"mask_keywords"`
	MaskLogs     bool     `yaml:"mask_logs"`

	PathCacheSize     int `yaml:"path_cache_size"`
	TemplateCacheSize int `yaml:"template_cache_size"`
	TraceSize         int `yaml:"trace_size"`
	TraceLimit        int `yaml:"trace_limit"`

	PublishRate       float64       `yaml:"publish_rate"`
	PublishBurst      int           `yaml:"publish_burst"`
	MaxReceiveTimeout time.Duration `yaml:"max_receive_timeout"`
	RateLimiterTTL    time.Duration `yaml:"rate_limiter_ttl"`
	WatcherDebounce   time.Duration `yaml:"watcher_debounce"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		RootDir:  "./tests",
		Port:     8080,
		LogLevel: "info",

		FunctionPrefix:     "agenix:",
		DefaultMessageType: string(message.XML),
		Encoding:           "UTF-8",
		PollingInterval:    500 * time.Millisecond,
		ReceiveTimeout:     5 * time.Second,

		MaskKeywords: []string{"password", "secret", "secretKey"},
		MaskLogs:     true,

		PathCacheSize:     256,
		TemplateCacheSize: 128,
		TraceSize:         200,
		TraceLimit:        10,

		MaxReceiveTimeout: 60 * time.Second,
		RateLimiterTTL:    10 * time.Minute,
		WatcherDebounce:   500 * time.Millisecond,

		ReadTimeout:     30 * time.Second,
		WriteTimeout:    90 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

var validLogLevels = []string{"debug", "info", "warn", "warning", "error"}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	if c.FunctionPrefix != "" && !strings.HasSuffix(c.FunctionPrefix, ":") {
		errs = append(errs, fmt.Errorf("function prefix %q must end with ':'", c.FunctionPrefix))
	}
	if c.DefaultMessageType != "" && message.ParseType(c.DefaultMessageType) == message.Unspecified {
		errs = append(errs, fmt.Errorf("unknown default message type %q", c.DefaultMessageType))
	}
	if c.PollingInterval < 0 || c.ReceiveTimeout < 0 || c.MaxReceiveTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.PublishRate < 0 || c.PublishBurst < 0 {
		errs = append(errs, errors.New("publish rate and burst must not be negative"))
	}
	return errors.Join(errs...)
}

// ErrNoSettingsFile is returned by Reload when no settings file is set.
var ErrNoSettingsFile = errors.New("no settings file configured")

// ConfigStore holds the current configuration snapshot. Snapshots are
// immutable; Reload builds a new one and swaps it in.
type ConfigStore struct {
	current   atomic.Pointer[Config]
	base      Config
	overrides []func(*Config)
}

// NewConfigStore creates a store whose snapshots start from base. The
// settings file, when present, is layered on top of base and overrides are
// applied last, so command line flags win over the file.
func NewConfigStore(base Config, overrides ...func(*Config)) *ConfigStore {
	s := &ConfigStore{base: base, overrides: overrides}
	cfg := s.build()
	s.current.Store(&cfg)
	return s
}

// Load reads the settings file, if any, and installs the result.
func (s *ConfigStore) Load() error {
	if s.base.SettingsFile == "" {
		return nil
	}
	return s.Reload(context.Background())
}

// Reload rereads the settings file. The current snapshot is kept when the
// file cannot be read or holds invalid settings.
func (s *ConfigStore) Reload(ctx context.Context) error {
	if s.base.SettingsFile == "" {
		return ErrNoSettingsFile
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := s.base
	cfg.MaskKeywords = slices.Clone(s.base.MaskKeywords)
	cfg.Namespaces = maps.Clone(s.base.Namespaces)
	if err := filesystem.LoadConfig(s.base.SettingsFile, &cfg); err != nil {
		return err
	}
	for _, o := range s.overrides {
		o(&cfg)
	}
	cfg.SettingsFile = s.base.SettingsFile
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings in %s: %w", s.base.SettingsFile, err)
	}
	s.current.Store(&cfg)
	return nil
}

// Current returns the active snapshot. Callers must not modify it.
func (s *ConfigStore) Current() *Config {
	return s.current.Load()
}

func (s *ConfigStore) build() Config {
	cfg := s.base
	for _, o := range s.overrides {
		o(&cfg)
	}
	return cfg
}
