package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const consumedKeyPrefix = "consumed:"

// RedisGuard implements Guard on a Redis instance. SET NX provides the
// atomic check-then-mark for single-use tokens; INCR plus EXPIRE NX provides
// the atomic windowed counter. Correct across multiple server processes.
type RedisGuard struct {
	client *redis.Client
}

// NewRedisGuard connects a guard to the Redis instance at addr.
func NewRedisGuard(addr string) *RedisGuard {
	return &RedisGuard{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// NewRedisGuardFromClient wraps an existing client, useful in tests.
func NewRedisGuardFromClient(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

func (g *RedisGuard) MarkConsumed(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, consumedKeyPrefix+tokenID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return ok, nil
}

func (g *RedisGuard) IsConsumed(ctx context.Context, tokenID string) (bool, error) {
	n, err := g.client.Exists(ctx, consumedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}

func (g *RedisGuard) IncrAttempt(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := g.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// NX: only the first increment in a window sets the expiry
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return incr.Val(), nil
}

func (g *RedisGuard) Attempts(ctx context.Context, key string) (int64, error) {
	n, err := g.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return n, nil
}

// Ping verifies connectivity at startup.
func (g *RedisGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (g *RedisGuard) Close() error {
	return g.client.Close()
}
