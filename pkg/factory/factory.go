package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

const DefaultBackend = llm.BackendOpenAI

// ProfileSource looks up a capability profile overriding the built-in one
type ProfileSource interface {
	Profile(backend llm.Backend, model string) (llm.ModelInfo, bool)
}

// Resolved is everything a conversation request needs from its backend
type Resolved struct {
	Backend llm.Backend
	Parser  llm.Parser
	Opener  llm.StreamOpener
	Profile llm.ModelInfo
}

// Factory resolves backend configurations
type Factory struct {
	logger   *zap.Logger
	profiles ProfileSource
}

// Option configures a Factory
type Option func(*Factory)

// WithLogger sets the logger handed to parsers and openers
func WithLogger(logger *zap.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithProfiles sets a source of capability profiles consulted before the built-in ones
func WithProfiles(profiles ProfileSource) Option {
	return func(f *Factory) {
		f.profiles = profiles
	}
}

// New creates a new factory
func New(opts ...Option) *Factory {
	f := &Factory{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Resolve builds the parser, opener and profile of a backend configuration
func (f *Factory) Resolve(ctx context.Context, cfg llm.BackendConfig) (*Resolved, error) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultBackend
	}
	cfg = cfg.WithDefaults()

	if cfg.Model == "" && cfg.Backend != llm.BackendMock {
		return nil, &llm.Error{
			Code:    "missing_model",
			Message: "model is required",
			Type:    llm.ErrorTypeValidation,
		}
	}

	entry, exists := Lookup(cfg.Backend)
	if !exists {
		return nil, &llm.Error{
			Code:    "unsupported_backend",
			Message: fmt.Sprintf("unsupported backend: %s", cfg.Backend),
			Type:    llm.ErrorTypeValidation,
			Err:     llm.ErrUnsupportedBackend,
		}
	}

	logger := f.logger.With(zap.String("backend", cfg.Backend.String()))
	opener, err := entry.Opener(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create %s opener: %w", cfg.Backend, err)
	}

	return &Resolved{
		Backend: cfg.Backend,
		Parser:  entry.Parser(logger),
		Opener:  opener,
		Profile: f.Profile(cfg.Backend, cfg.Model),
	}, nil
}

// Profile returns the capability profile of a model
func (f *Factory) Profile(backend llm.Backend, model string) llm.ModelInfo {
	if f.profiles != nil {
		if info, ok := f.profiles.Profile(backend, model); ok {
			return info
		}
	}
	return DefaultProfile(backend, model)
}
