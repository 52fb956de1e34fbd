package robots

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Verify interface compliance.
var _ PolicyCache = (*RedisCache)(nil)

const policyKeyPrefix = "robots:policy:"

// RedisCache shares courtesy-policy bodies across processes so a fleet of
// callers does not re-fetch the same robots file per run. Entries expire
// via Redis TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing Redis client. A non-positive ttl defaults
// to one hour.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached policy body for the origin, reporting a miss for
// absent keys.
func (c *RedisCache) Get(ctx context.Context, origin string) ([]byte, bool, error) {
	body, err := c.client.Get(ctx, policyKeyPrefix+origin).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

// Set stores the policy body for the origin with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, origin string, body []byte) error {
	return c.client.Set(ctx, policyKeyPrefix+origin, body, c.ttl).Err()
}
