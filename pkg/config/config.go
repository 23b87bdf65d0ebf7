package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/llm"
	"github.com/inercia/go-llm-stream/pkg/notify"
	"github.com/inercia/go-llm-stream/pkg/orchestrator"
	"github.com/inercia/go-llm-stream/pkg/resilience"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "LLMSTREAM"

const defaultDebounce = 100 * time.Millisecond

// Config is the engine configuration
type Config struct {
	Backend  llm.BackendConfig      `mapstructure:"backend" yaml:"backend"`
	Retry    llm.RetryConfig        `mapstructure:"retry" yaml:"retry"`
	Batch    notify.Config          `mapstructure:"batch" yaml:"batch"`
	MaxTurns int                    `mapstructure:"max_turns" yaml:"max_turns"`
	Redis    resilience.RedisConfig `mapstructure:"redis" yaml:"redis"`

	// CapabilitiesFile overrides the embedded capability profiles
	CapabilitiesFile string `mapstructure:"capabilities_file" yaml:"capabilities_file"`
}

// clone copies the slices and maps of c
func (c Config) clone() Config {
	c.Backend.APIKeys = slices.Clone(c.Backend.APIKeys)
	if c.Backend.Extra != nil {
		extra := make(map[string]string, len(c.Backend.Extra))
		for k, v := range c.Backend.Extra {
			extra[k] = v
		}
		c.Backend.Extra = extra
	}
	c.Retry.RetryOnStatusCodes = slices.Clone(c.Retry.RetryOnStatusCodes)
	c.Retry.RetryOnErrorTypes = slices.Clone(c.Retry.RetryOnErrorTypes)
	c.Redis.Addrs = slices.Clone(c.Redis.Addrs)
	c.Redis.SentinelAddrs = slices.Clone(c.Redis.SentinelAddrs)
	return c
}

// Validate checks the configuration after defaults are applied
func (c Config) Validate() error {
	if _, err := llm.ParseBackend(c.Backend.Backend.String()); err != nil {
		return err
	}
	if c.Backend.Backend != llm.BackendMock && c.Backend.Model == "" {
		return &llm.Error{Code: "missing_model", Message: "backend.model is required", Type: llm.ErrorTypeValidation}
	}
	if c.MaxTurns < 1 {
		return &llm.Error{Code: "invalid_max_turns", Message: fmt.Sprintf("max_turns must be positive, got %d", c.MaxTurns), Type: llm.ErrorTypeValidation}
	}
	return nil
}

// defaults are registered with viper so every key can be overridden from the environment
func defaults() map[string]any {
	retry := llm.DefaultRetryConfig()
	batch := notify.DefaultConfig()
	return map[string]any{
		"backend.backend":      llm.BackendOpenAI.String(),
		"backend.model":        "",
		"backend.api_keys":     []string{},
		"backend.base_url":     "",
		"backend.timeout":      llm.DefaultStreamTimeout,
		"retry.max_retries":    retry.MaxRetries,
		"retry.base_delay":     retry.BaseDelay,
		"retry.max_delay":      retry.MaxDelay,
		"retry.backoff_factor": retry.BackoffFactor,
		"retry.jitter":         retry.Jitter,
		"batch.max_items":      batch.MaxItems,
		"batch.max_delay":      batch.MaxDelay,
		"batch.idle_timeout":   batch.IdleTimeout,
		"max_turns":            orchestrator.DefaultMaxTurns,
		"redis.addrs":          []string{},
		"redis.password":       "",
		"redis.db":             0,
		"redis.key_prefix":     "",
		"redis.dial_timeout":   5 * time.Second,
		"redis.master_name":    "",
		"redis.sentinel_addrs": []string{},
		"capabilities_file":    "",
	}
}

// Loader holds the current configuration and reloads it when its file changes
type Loader struct {
	v        *viper.Viper
	path     string
	envFiles []string
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	value    Config
	watchers []func(old, new Config)

	debounceMu sync.Mutex
	timer      *time.Timer
}

// Option configures a Loader
type Option func(*Loader)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithEnvFiles sets the .env files preloaded into the environment. Missing
// files are ignored. Defaults to ".env".
func WithEnvFiles(paths ...string) Option {
	return func(l *Loader) {
		l.envFiles = paths
	}
}

// WithDebounce sets how long file changes settle before a reload
func WithDebounce(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.debounce = d
		}
	}
}

// Load reads the configuration. path may be empty to use defaults and the
// environment only.
func Load(path string, opts ...Option) (*Loader, error) {
	l := &Loader{
		v:        viper.New(),
		path:     path,
		envFiles: []string{".env"},
		debounce: defaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := loadEnvFiles(l.envFiles); err != nil {
		return nil, err
	}

	for k, v := range defaults() {
		l.v.SetDefault(k, v)
	}
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}
	l.value = cfg
	return l, nil
}

// loadEnvFiles preloads .env files without overriding variables already set
func loadEnvFiles(paths []string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

func (l *Loader) decode() (Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	backend, err := llm.ParseBackend(cfg.Backend.Backend.String())
	if err != nil {
		return Config{}, err
	}
	cfg.Backend.Backend = backend

	fromEnv := llm.BackendConfigFromEnv(backend)
	if len(cfg.Backend.APIKeys) == 0 {
		cfg.Backend.APIKeys = fromEnv.APIKeys
	}
	if cfg.Backend.Model == "" {
		cfg.Backend.Model = fromEnv.Model
	}
	if cfg.Backend.Extra == nil {
		cfg.Backend.Extra = fromEnv.Extra
	}
	cfg.Backend = cfg.Backend.WithDefaults()
	cfg.Retry = cfg.Retry.WithDefaults()
	cfg.Batch = cfg.Batch.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Get returns a copy of the current configuration
func (l *Loader) Get() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value.clone()
}

// OnChange registers a callback run after a reload that changed the configuration
func (l *Loader) OnChange(fn func(old, new Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watchers = append(l.watchers, fn)
}

// Watch reloads the configuration file when it changes. It is a no-op without a file.
func (l *Loader) Watch() {
	if l.path == "" {
		return
	}
	l.v.OnConfigChange(func(ev fsnotify.Event) {
		l.debounceMu.Lock()
		defer l.debounceMu.Unlock()
		if l.timer != nil {
			l.timer.Stop()
		}
		l.timer = time.AfterFunc(l.debounce, func() { l.reload(ev.Name) })
	})
	l.v.WatchConfig()
}

func (l *Loader) reload(name string) {
	// viper re-reads the file before notifying
	cfg, err := l.decode()
	if err != nil {
		l.logger.Warn("ignoring invalid configuration change", zap.String("file", name), zap.Error(err))
		return
	}

	l.mu.Lock()
	old := l.value
	if reflect.DeepEqual(old, cfg) {
		l.mu.Unlock()
		return
	}
	l.value = cfg
	watchers := slices.Clone(l.watchers)
	l.mu.Unlock()

	l.logger.Info("configuration reloaded", zap.String("file", name))
	for _, fn := range watchers {
		l.notify(fn, old.clone(), cfg.clone())
	}
}

func (l *Loader) notify(fn func(old, new Config), old, cfg Config) {
	defer func() {
		if p := recover(); p != nil {
			l.logger.Error("configuration watcher panicked", zap.Any("panic", p))
		}
	}()
	fn(old, cfg)
}
