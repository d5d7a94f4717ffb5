package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storeboost/storeboost-auth/internal/repository"
)

// RedisTokenCache implements the single-slot session token register on
// Redis. Every operation is a plain SET/GET/DEL on one key, so concurrent
// writers resolve to last-writer-wins without extra locking.
type RedisTokenCache struct {
	client redis.UniversalClient
}

var _ repository.TokenCache = (*RedisTokenCache)(nil)

// NewRedisTokenCache constructs a Redis-backed token cache.
func NewRedisTokenCache(client redis.UniversalClient) *RedisTokenCache {
	return &RedisTokenCache{client: client}
}

// Set stores the token with TTL, overwriting any previous entry.
func (c *RedisTokenCache) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, token, ttl).Err(); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}

// Get returns the cached token, or empty string when absent or expired.
func (c *RedisTokenCache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("load token: %w", err)
	}
	return value, nil
}

// Delete removes the cached token. Deleting an absent key is not an error.
func (c *RedisTokenCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
