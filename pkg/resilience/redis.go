package resilience

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a RedisKeyPool
type RedisConfig struct {
	// Redis connection
	Addrs    []string `mapstructure:"addrs" json:"addrs" yaml:"addrs"` // single for standalone, multiple for cluster
	Password string   `mapstructure:"password" json:"-" yaml:"password"`
	DB       int      `mapstructure:"db" json:"db" yaml:"db"`

	// Optional
	KeyPrefix   string        `mapstructure:"key_prefix" json:"key_prefix" yaml:"key_prefix"` // default: "llmstream:keys:"
	DialTimeout time.Duration `mapstructure:"dial_timeout" json:"dial_timeout" yaml:"dial_timeout"`

	// Sentinel
	MasterName    string   `mapstructure:"master_name" json:"master_name" yaml:"master_name"`
	SentinelAddrs []string `mapstructure:"sentinel_addrs" json:"sentinel_addrs" yaml:"sentinel_addrs"`
}

// RedisKeyPool is a KeyPool whose cooldowns live in Redis as expiring keys, so
// every process sharing the same API keys sees the same rate-limit state.
// API keys are stored only as SHA-256 fingerprints.
type RedisKeyPool struct {
	client redis.UniversalClient
	prefix string
	keys   []string
}

// NewRedisKeyPool connects to Redis and creates a pool over keys
func NewRedisKeyPool(ctx context.Context, cfg RedisConfig, keys ...string) (*RedisKeyPool, error) {
	if len(cfg.Addrs) == 0 {
		cfg.Addrs = []string{"localhost:6379"}
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	var client redis.UniversalClient
	switch {
	case len(cfg.SentinelAddrs) > 0:
		client = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    cfg.MasterName,
			SentinelAddrs: cfg.SentinelAddrs,
			Password:      cfg.Password,
			DB:            cfg.DB,
			DialTimeout:   cfg.DialTimeout,
		})
	case len(cfg.Addrs) > 1:
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:       cfg.Addrs,
			Password:    cfg.Password,
			DialTimeout: cfg.DialTimeout,
		})
	default:
		client = redis.NewClient(&redis.Options{
			Addr:        cfg.Addrs[0],
			Password:    cfg.Password,
			DB:          cfg.DB,
			DialTimeout: cfg.DialTimeout,
		})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisKeyPoolFromClient(client, cfg.KeyPrefix, keys...), nil
}

// NewRedisKeyPoolFromClient creates a pool on an existing client
func NewRedisKeyPoolFromClient(client redis.UniversalClient, prefix string, keys ...string) *RedisKeyPool {
	if prefix == "" {
		prefix = "llmstream:keys:"
	}
	return &RedisKeyPool{client: client, prefix: prefix, keys: slices.Clone(keys)}
}

func (p *RedisKeyPool) cooldownKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return p.prefix + "cooldown:" + hex.EncodeToString(sum[:8])
}

func (p *RedisKeyPool) Acquire(ctx context.Context, exclude ...string) (string, error) {
	if len(p.keys) == 0 {
		return "", nil
	}

	n, err := p.client.Incr(ctx, p.prefix+"rr").Result()
	if err != nil {
		return "", fmt.Errorf("redis key rotation: %w", err)
	}

	pipe := p.client.Pipeline()
	ttls := make(map[string]*redis.DurationCmd, len(p.keys))
	for _, k := range p.keys {
		ttls[k] = pipe.PTTL(ctx, p.cooldownKey(k))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("redis key cooldowns: %w", err)
	}

	now := time.Now()
	until := func(k string) time.Time {
		ttl, err := ttls[k].Result()
		if err != nil || ttl <= 0 {
			return time.Time{}
		}
		return now.Add(ttl)
	}

	start := int((n - 1) % int64(len(p.keys)))
	key, wait, ok := pick(p.keys, start, now, until, exclude)
	if !ok {
		return "", noKeysError(wait)
	}
	return key, nil
}

func (p *RedisKeyPool) ReportRateLimited(ctx context.Context, key string, cooldown time.Duration) error {
	return p.client.Set(ctx, p.cooldownKey(key), "1", cooldown).Err()
}

func (p *RedisKeyPool) ReportHealthy(ctx context.Context, key string) error {
	return p.client.Del(ctx, p.cooldownKey(key)).Err()
}

// Close closes the Redis client
func (p *RedisKeyPool) Close() error {
	return p.client.Close()
}
