// Package redis wraps go-redis with the operations the platform needs:
// sessions, idempotency records, rate-limit counters and cron locks, all
// under the "gd" key namespace.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

var errNotInitialized = errors.New("redis client not initialized")

// incrScript increments KEYS[1] and, on the first hit, starts its TTL of
// ARGV[1] milliseconds in the same atomic step.
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 and tonumber(ARGV[1]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// releaseLockScript deletes KEYS[1] only while ARGV[1] still owns it.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Client struct {
	raw *redis.Client
}

// Pinger is the readiness-probe surface.
type Pinger interface {
	Ping(context.Context) error
}

// IdempotencyStore is what the HTTP replay cache and the event ledger need.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	Set(context.Context, string, any, time.Duration) error
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// New dials redis from cfg and fails unless the server answers a ping.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"addr":      opts.Addr,
			"db":        opts.DB,
			"pool_size": opts.PoolSize,
		}), "redis.connected")
	}
	return &Client{raw: raw}, nil
}

// NewFromClient adopts an existing go-redis client; tests point it at miniredis.
func NewFromClient(raw *redis.Client) *Client {
	return &Client{raw: raw}
}

// optionsFromConfig prefers GIFTDESK_REDIS_URL. Settings in the URL win over
// the discrete pool and timeout variables.
func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case cfg.Address == "":
		return nil, errors.New("redis url or address is required")
	}
	fill(&opts.PoolSize, cfg.PoolSize)
	fill(&opts.MinIdleConns, cfg.MinIdleConns)
	fill(&opts.DialTimeout, cfg.DialTimeout)
	fill(&opts.ReadTimeout, cfg.ReadTimeout)
	fill(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func fill[T comparable](dst *T, fallback T) {
	var zero T
	if *dst == zero {
		*dst = fallback
	}
}

func (c *Client) ready() error {
	if c == nil || c.raw == nil {
		return errNotInitialized
	}
	return nil
}

// IsMiss reports whether err is the missing-key sentinel.
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.raw.Set(ctx, key, value, ttl).Err()
}

// Get returns redis.Nil for missing keys; see IsMiss.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.raw.Get(ctx, key).Result()
}

// GetDel reads and removes key in one round trip.
func (c *Client) GetDel(ctx context.Context, key string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.raw.GetDel(ctx, key).Result()
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	n, err := c.raw.Exists(ctx, key).Result()
	return n > 0, err
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	return c.raw.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.raw.Del(ctx, keys...).Err()
}

// IncrWithTTL bumps a counter whose TTL starts with its first increment.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	return incrScript.Run(ctx, c.raw, []string{key}, ttl.Milliseconds()).Int64()
}

// FixedWindowAllow counts one hit against scope and reports whether the
// window still has room.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	hits, err := c.IncrWithTTL(ctx, c.RateLimitKey(scope), window)
	if err != nil {
		return false, 0, err
	}
	return hits <= limit, hits, nil
}

// AcquireLock takes name for ttl unless someone holds it. owner must be unique
// per holder so ReleaseLock can't free someone else's lock.
func (c *Client) AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	return c.SetNX(ctx, c.LockKey(name), owner, ttl)
}

func (c *Client) ReleaseLock(ctx context.Context, name, owner string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return releaseLockScript.Run(ctx, c.raw, []string{c.LockKey(name)}, owner).Err()
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.raw.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw.Close()
}
