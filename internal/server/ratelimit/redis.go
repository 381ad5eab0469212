package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend counts requests in fixed windows stored in Redis, so every
// server instance shares the same counters. Burst is not applied.
type RedisBackend struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisBackend connects to the Redis server at url
// ("redis://<user>:<pass>@host:6379/<db>").
func NewRedisBackend(url string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return NewRedisBackendWithClient(redis.NewClient(opts)), nil
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client, prefix: "ratelimit:", now: time.Now}
}

// Ping checks connectivity.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Take increments the counter for the current window.
func (b *RedisBackend) Take(ctx context.Context, key string, rule EndpointConfig) (Info, error) {
	now := b.now()
	windowStart := now.Truncate(rule.Window)
	reset := windowStart.Add(rule.Window)
	redisKey := b.prefix + key + ":" + strconv.FormatInt(windowStart.Unix(), 10)

	var incr *redis.IntCmd
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireAt(ctx, redisKey, reset.Add(time.Second))
		return nil
	})
	if err != nil {
		return Info{}, fmt.Errorf("error while counting request: %w", err)
	}

	count := int(incr.Val())
	info := Info{
		Allowed:   count <= rule.Limit,
		Limit:     rule.Limit,
		Remaining: max(rule.Limit-count, 0),
		ResetTime: reset,
	}
	if !info.Allowed {
		info.RetryAfter = reset.Sub(now)
	}
	return info, nil
}

// Close closes the client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
