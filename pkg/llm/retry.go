// Package llm provides retry configuration and exponential backoff for conversation attempts.
//
// Examples:
//
// Default configuration (3 retries, 1s base delay, 2x backoff):
//
//	cfg := llm.DefaultRetryConfig()
//	delay := cfg.Delay(attempt)
//
// Conservative retry for rate-limited APIs:
//
//	cfg := llm.RetryConfig{
//		MaxRetries:    5,
//		BaseDelay:     2 * time.Second,
//		MaxDelay:      5 * time.Minute,
//		BackoffFactor: 2.5,
//		Jitter:        true,
//	}
//
// Only retry rate limits, not server errors:
//
//	cfg := llm.RetryConfig{MaxRetries: 3, RetryOnStatusCodes: []int{429}}
package llm

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// secureRandomFloat64 generates a cryptographically secure random float64 between 0 and 1
func secureRandomFloat64() (float64, error) {
	var bytes [8]byte
	_, err := rand.Read(bytes[:])
	if err != nil {
		return 0, err
	}
	return float64(binary.BigEndian.Uint64(bytes[:])) / float64(^uint64(0)), nil
}

// RetryConfig defines configuration options for attempt-level retries.
//
// Web application (balance speed and reliability):
//
//	RetryConfig{MaxRetries: 3, BaseDelay: 1*time.Second, BackoffFactor: 2.0}
//
// Real-time system (quick failures):
//
//	RetryConfig{MaxRetries: 1, BaseDelay: 200*time.Millisecond, BackoffFactor: 2.0}
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 3).
	// Total attempts = MaxRetries + 1.
	MaxRetries int `mapstructure:"max_retries" json:"max_retries" yaml:"max_retries"`

	// BaseDelay is the initial delay between retries (default: 1 second).
	BaseDelay time.Duration `mapstructure:"base_delay" json:"base_delay" yaml:"base_delay"`

	// MaxDelay caps the delay between retries (default: 60 seconds).
	MaxDelay time.Duration `mapstructure:"max_delay" json:"max_delay" yaml:"max_delay"`

	// BackoffFactor multiplies the delay after each retry (default: 2.0).
	BackoffFactor float64 `mapstructure:"backoff_factor" json:"backoff_factor" yaml:"backoff_factor"`

	// Jitter multiplies each delay by a random factor between 0.5 and 1.5.
	Jitter bool `mapstructure:"jitter" json:"jitter" yaml:"jitter"`

	// RetryOnStatusCodes restricts retries to these HTTP status codes when set.
	RetryOnStatusCodes []int `mapstructure:"retry_on_status_codes" json:"retry_on_status_codes,omitempty" yaml:"retry_on_status_codes,omitempty"`

	// RetryOnErrorTypes restricts retries to these error types when set.
	RetryOnErrorTypes []string `mapstructure:"retry_on_error_types" json:"retry_on_error_types,omitempty" yaml:"retry_on_error_types,omitempty"`
}

// DefaultRetryConfig returns a sensible default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		BaseDelay:     1 * time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// WithDefaults fills zero values with the defaults. A negative MaxRetries disables retries.
func (c RetryConfig) WithDefaults() RetryConfig {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 1 * time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 60 * time.Second
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = 2.0
	}
	return c
}

// Delay computes the delay before retry number attempt (0-based) using exponential backoff
func (c RetryConfig) Delay(attempt int) time.Duration {
	delay := float64(c.BaseDelay) * math.Pow(c.BackoffFactor, float64(attempt))

	if c.Jitter {
		randomValue, err := secureRandomFloat64()
		if err != nil {
			randomValue = 1.0
		}
		delay *= 0.5 + randomValue
	}

	if c.MaxDelay > 0 && delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	return time.Duration(delay)
}

// ShouldRetry determines if an attempt error should trigger a retry.
// With no explicit status codes or error types configured, IsRetryable decides.
func (c RetryConfig) ShouldRetry(err error) bool {
	if err == nil || IsCancellation(err) {
		return false
	}
	if len(c.RetryOnStatusCodes) == 0 && len(c.RetryOnErrorTypes) == 0 {
		return IsRetryable(err)
	}

	var llmErr *Error
	if !errors.As(err, &llmErr) {
		return false
	}
	if slices.Contains(c.RetryOnStatusCodes, llmErr.StatusCode) {
		return true
	}
	return slices.Contains(c.RetryOnErrorTypes, llmErr.Type)
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ParseRetryAfter reads a Retry-After header value in seconds or HTTP-date form
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
