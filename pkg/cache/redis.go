package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key written by a RedisCache.
const DefaultRedisPrefix = "neuralviz:"

// RedisCache stores entries in Redis using native key expiry. Transient
// connection failures are retried with backoff; a missing key is a miss,
// not an error.
type RedisCache struct {
	client *backend.Client
	prefix string
}

// RedisOption configures a RedisCache.
type RedisOption func(*RedisCache)

// WithRedisPrefix sets the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisCache) {
		c.prefix = prefix
	}
}

// NewRedisCache connects to the Redis server at addr.
func NewRedisCache(addr, password string, db int, opts ...RedisOption) *RedisCache {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisCacheFromClient(client, opts...)
}

// NewRedisCacheFromClient wraps an existing client. Close closes it.
func NewRedisCacheFromClient(client *backend.Client, opts ...RedisOption) *RedisCache {
	c := &RedisCache{client: client, prefix: DefaultRedisPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks that the server is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return nil
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := RetryWithBackoff(ctx, func() error {
		v, err := c.client.Get(ctx, c.prefix+key).Bytes()
		if err != nil {
			return classify(err)
		}
		data = v
		return nil
	})
	if errors.Is(err, backend.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value with Redis-side expiry.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return RetryWithBackoff(ctx, func() error {
		return classify(c.client.Set(ctx, c.prefix+key, data, ttl).Err())
	})
}

// Delete removes a value.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return RetryWithBackoff(ctx, func() error {
		return classify(c.client.Del(ctx, c.prefix+key).Err())
	})
}

// Clear deletes every key under the cache prefix and returns how many
// were removed.
func (c *RedisCache) Clear(ctx context.Context) (int, error) {
	removed := 0
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := c.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return removed, fmt.Errorf("delete %s: %w", iter.Val(), err)
		}
		removed += int(n)
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan: %w", err)
	}
	return removed, nil
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// classify marks connection-level failures as retryable. redis.Nil and
// context errors are returned unchanged.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, backend.Nil), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
}

// Ensure RedisCache implements Cache.
var _ Cache = (*RedisCache)(nil)
