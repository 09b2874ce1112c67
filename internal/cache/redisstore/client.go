// Package redisstore keeps the layer cache slot in Redis so several
// operator machines share the last known-good list.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/mohammed-shakir/layer-report-client/internal/core/observability"
)

const driver = "redis"

type Option func(*options)

type options struct {
	redis redis.Options
	ttl   time.Duration
}

func WithPoolSize(n int) Option {
	return func(o *options) { o.redis.PoolSize = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.redis.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *options) { o.redis.ReadTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.redis.WriteTimeout = d }
}

// WithTTL expires the slot after d. Zero keeps it until overwritten.
func WithTTL(d time.Duration) Option {
	return func(o *options) { o.ttl = d }
}

type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	o := &options{redis: redis.Options{
		Addr:         addr,
		PoolSize:     4,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	}}
	for _, f := range opts {
		f(o)
	}

	rdb := redis.NewClient(&o.redis)

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	observability.ObserveCacheOp("ping", driver, err, time.Since(start).Seconds())
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{rdb: rdb, ttl: o.ttl}, nil
}

func (c *Client) Driver() string { return driver }

func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCacheOp("get", driver, nil, time.Since(start).Seconds())
		observability.IncCacheResult(driver, false)
		return nil, false, nil
	}
	observability.ObserveCacheOp("get", driver, err, time.Since(start).Seconds())
	if err != nil {
		return nil, false, fmt.Errorf("redis GET %q: %w", key, err)
	}
	observability.IncCacheResult(driver, true)
	return val, true, nil
}

func (c *Client) Set(ctx context.Context, key string, val []byte) error {
	start := time.Now()
	err := c.rdb.Set(ctx, key, val, c.ttl).Err()
	observability.ObserveCacheOp("set", driver, err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis SET %q: %w", key, err)
	}
	return nil
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	start := time.Now()
	err := c.rdb.Del(ctx, keys...).Err()
	observability.ObserveCacheOp("del", driver, err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis DEL %d keys: %w", len(keys), err)
	}
	return nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
