package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

func newTestHandler(t *testing.T, cfg llm.RetryConfig, opts ...Option) (*Handler, *[]time.Duration) {
	t.Helper()
	h := NewHandler(cfg, append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
	var sleeps []time.Duration
	h.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return h, &sleeps
}

var fastRetry = llm.RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2}

func TestExecuteSucceedsFirstTime(t *testing.T) {
	t.Parallel()

	pool := NewMemoryKeyPool("k1")
	h, sleeps := newTestHandler(t, fastRetry, WithKeyPool(pool))

	var keys []string
	err := h.Execute(context.Background(), func(_ context.Context, key string) error {
		keys = append(keys, key)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"k1"}, keys)
	assert.Empty(t, *sleeps)
}

func TestExecuteRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	h, sleeps := newTestHandler(t, fastRetry)
	calls := 0
	err := h.Execute(context.Background(), func(_ context.Context, key string) error {
		calls++
		assert.Empty(t, key)
		switch calls {
		case 1:
			return llm.NewNetworkError(errors.New("connection reset"))
		case 2:
			return llm.ErrStreamTruncated
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, *sleeps)
}

func TestExecuteRotatesRateLimitedKey(t *testing.T) {
	t.Parallel()

	pool := NewMemoryKeyPool("k1", "k2")
	h, sleeps := newTestHandler(t, fastRetry, WithKeyPool(pool), WithCooldown(time.Minute))

	var keys []string
	err := h.Execute(context.Background(), func(_ context.Context, key string) error {
		keys = append(keys, key)
		if key == "k1" {
			e := llm.NewErrorFromStatus(http.StatusTooManyRequests, "slow down")
			e.RetryAfter = 30 * time.Second
			return e
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2"}, keys)
	require.Len(t, *sleeps, 1)
	assert.Equal(t, time.Millisecond, (*sleeps)[0], "a fresh key does not wait for the old key's Retry-After")

	pool.mu.Lock()
	until, cooling := pool.cooldown["k1"]
	pool.mu.Unlock()
	assert.True(t, cooling)
	assert.WithinDuration(t, time.Now().Add(30*time.Second), until, 5*time.Second)
}

func TestExecuteHonorsRetryAfterWhenEveryKeyIsCooling(t *testing.T) {
	t.Parallel()

	pool := NewMemoryKeyPool("only")
	h, sleeps := newTestHandler(t, fastRetry, WithKeyPool(pool))

	calls := 0
	err := h.Execute(context.Background(), func(_ context.Context, key string) error {
		calls++
		if calls == 1 {
			e := llm.NewErrorFromStatus(http.StatusTooManyRequests, "slow down")
			e.RetryAfter = 200 * time.Millisecond
			return e
		}
		return nil
	})
	require.Error(t, err)
	assert.True(t, llm.IsRateLimit(err))
	assert.ErrorIs(t, err, llm.ErrNoAPIKey)
	assert.Equal(t, 1, calls)
	require.NotEmpty(t, *sleeps)
	assert.Greater(t, (*sleeps)[0], 100*time.Millisecond)
}

func TestExecuteDoesNotRetryPermanentErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{"authentication", llm.NewErrorFromStatus(http.StatusUnauthorized, "bad key")},
		{"invalid request", llm.NewErrorFromFinishReason(llm.FinishReasonInvalidRequest, "too long")},
		{"cancellation", context.Canceled},
		{"plain error", errors.New("payload builder exploded")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, sleeps := newTestHandler(t, fastRetry)
			calls := 0
			err := h.Execute(context.Background(), func(context.Context, string) error {
				calls++
				return tt.err
			})
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, calls)
			assert.Empty(t, *sleeps)
		})
	}
}

func TestExecuteGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	h, sleeps := newTestHandler(t, llm.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, BackoffFactor: 1})
	calls := 0
	overloaded := llm.NewErrorFromFinishReason(llm.FinishReasonOverloaded, "busy")
	err := h.Execute(context.Background(), func(context.Context, string) error {
		calls++
		return overloaded
	})
	assert.ErrorIs(t, err, overloaded)
	assert.Equal(t, 3, calls)
	assert.Len(t, *sleeps, 2)
}

func TestExecuteStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	h, _ := newTestHandler(t, fastRetry)
	calls := 0
	err := h.Execute(ctx, func(context.Context, string) error {
		calls++
		cancel()
		return llm.NewNetworkError(errors.New("read aborted"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecuteReportsHealthyKey(t *testing.T) {
	t.Parallel()

	pool := NewMemoryKeyPool("k1")
	require.NoError(t, pool.ReportRateLimited(context.Background(), "k1", -time.Second))
	h, _ := newTestHandler(t, fastRetry, WithKeyPool(pool))

	require.NoError(t, h.Execute(context.Background(), func(context.Context, string) error { return nil }))
	pool.mu.Lock()
	_, cooling := pool.cooldown["k1"]
	pool.mu.Unlock()
	assert.False(t, cooling)
}
