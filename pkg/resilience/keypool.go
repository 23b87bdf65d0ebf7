package resilience

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

// KeyPool hands out provider API keys and tracks their rate-limit cooldowns
type KeyPool interface {
	// Acquire returns a key that is not cooling down, preferring keys not in
	// exclude. A pool without keys returns "".
	Acquire(ctx context.Context, exclude ...string) (string, error)

	// ReportRateLimited puts key on cooldown
	ReportRateLimited(ctx context.Context, key string, cooldown time.Duration) error

	// ReportHealthy clears any cooldown of key
	ReportHealthy(ctx context.Context, key string) error
}

// noKeysError is returned when every key of a pool is cooling down
func noKeysError(wait time.Duration) error {
	return &llm.Error{
		Code:       "no_api_key",
		Message:    "every API key is rate limited",
		Type:       llm.ErrorTypeRateLimit,
		RetryAfter: wait,
		Err:        llm.ErrNoAPIKey,
	}
}

// pick chooses a key in round-robin order starting at start. until returns
// the cooldown expiry of a key (zero when healthy).
func pick(keys []string, start int, now time.Time, until func(string) time.Time, exclude []string) (string, time.Duration, bool) {
	var fallback string
	var earliest time.Time
	for i := range keys {
		k := keys[(start+i)%len(keys)]
		if exp := until(k); exp.After(now) {
			if earliest.IsZero() || exp.Before(earliest) {
				earliest = exp
			}
			continue
		}
		if !slices.Contains(exclude, k) {
			return k, 0, true
		}
		if fallback == "" {
			fallback = k
		}
	}
	if fallback != "" {
		return fallback, 0, true
	}
	return "", earliest.Sub(now), false
}

// MemoryKeyPool is an in-process KeyPool with round-robin selection
type MemoryKeyPool struct {
	mu       sync.Mutex
	keys     []string
	cooldown map[string]time.Time
	next     int
	now      func() time.Time
}

// NewMemoryKeyPool creates a pool over keys
func NewMemoryKeyPool(keys ...string) *MemoryKeyPool {
	return &MemoryKeyPool{
		keys:     slices.Clone(keys),
		cooldown: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (p *MemoryKeyPool) Acquire(_ context.Context, exclude ...string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return "", nil
	}

	start := p.next
	p.next = (p.next + 1) % len(p.keys)
	key, wait, ok := pick(p.keys, start, p.now(), func(k string) time.Time { return p.cooldown[k] }, exclude)
	if !ok {
		return "", noKeysError(wait)
	}
	return key, nil
}

func (p *MemoryKeyPool) ReportRateLimited(_ context.Context, key string, cooldown time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cooldown[key] = p.now().Add(cooldown)
	return nil
}

func (p *MemoryKeyPool) ReportHealthy(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cooldown, key)
	return nil
}
