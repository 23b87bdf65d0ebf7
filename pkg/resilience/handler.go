package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

// DefaultCooldown is how long a rate-limited key rests when the backend gave no Retry-After
const DefaultCooldown = 60 * time.Second

// Attempt is one full conversation attempt run with an API key
type Attempt func(ctx context.Context, key string) error

// Handler retries attempts and rotates API keys
type Handler struct {
	cfg      llm.RetryConfig
	keys     KeyPool
	cooldown time.Duration
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a Handler
type Option func(*Handler)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithKeyPool sets the pool keys are acquired from. Without one attempts run with "".
func WithKeyPool(pool KeyPool) Option {
	return func(h *Handler) {
		h.keys = pool
	}
}

// WithCooldown sets the cooldown of rate-limited keys without a Retry-After hint
func WithCooldown(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.cooldown = d
		}
	}
}

// NewHandler creates a handler with the given retry policy
func NewHandler(cfg llm.RetryConfig, opts ...Option) *Handler {
	h := &Handler{
		cfg:      cfg.WithDefaults(),
		cooldown: DefaultCooldown,
		logger:   zap.NewNop(),
		sleep:    llm.Sleep,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Execute runs fn until it succeeds, fails permanently or the retries are spent.
// The error of the last attempt is returned unchanged.
func (h *Handler) Execute(ctx context.Context, fn Attempt) error {
	key, err := h.acquire(ctx)
	for attempt := 0; ; attempt++ {
		if err == nil {
			err = fn(ctx, key)
			if err == nil {
				h.reportHealthy(ctx, key)
				return nil
			}
		}

		if llm.IsCancellation(err) || ctx.Err() != nil {
			return err
		}

		failedKey := key
		rateLimited := llm.IsRateLimit(err)
		if rateLimited && failedKey != "" {
			h.reportRateLimited(ctx, failedKey, err)
		}

		if attempt >= h.cfg.MaxRetries || !h.cfg.ShouldRetry(err) {
			h.logger.Warn("attempt failed permanently",
				zap.Int("attempt", attempt+1),
				zap.Bool("retryable", h.cfg.ShouldRetry(err)),
				zap.Error(err))
			return err
		}

		delay := h.cfg.Delay(attempt)
		var acquireErr error
		if rateLimited {
			key, acquireErr = h.acquire(ctx, failedKey)
		}
		// the Retry-After hint only binds the key it was issued for
		if ra := llm.RetryAfterOf(err); ra > delay && (!rateLimited || key == failedKey || acquireErr != nil) {
			delay = min(ra, h.cfg.MaxDelay)
		}

		h.logger.Info("retrying attempt",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", h.cfg.MaxRetries),
			zap.Duration("delay", delay),
			zap.Bool("rotated_key", rateLimited && key != failedKey),
			zap.Error(err))

		if sleepErr := h.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
		if acquireErr != nil {
			// every key was cooling down; try again now that we waited
			key, acquireErr = h.acquire(ctx, failedKey)
		}
		err = acquireErr
	}
}

func (h *Handler) acquire(ctx context.Context, exclude ...string) (string, error) {
	if h.keys == nil {
		return "", nil
	}
	return h.keys.Acquire(ctx, exclude...)
}

func (h *Handler) reportRateLimited(ctx context.Context, key string, cause error) {
	if h.keys == nil {
		return
	}
	cooldown := h.cooldown
	if ra := llm.RetryAfterOf(cause); ra > 0 {
		cooldown = ra
	}
	if err := h.keys.ReportRateLimited(ctx, key, cooldown); err != nil {
		h.logger.Warn("failed to report rate-limited key", zap.Error(err))
	}
}

func (h *Handler) reportHealthy(ctx context.Context, key string) {
	if h.keys == nil || key == "" {
		return
	}
	if err := h.keys.ReportHealthy(ctx, key); err != nil {
		h.logger.Warn("failed to report healthy key", zap.Error(err))
	}
}
