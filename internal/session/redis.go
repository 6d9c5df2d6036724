package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// RedisAllowlist stores live token ids as expiring keys.
type RedisAllowlist struct {
	client redis.Cmdable
}

// NewRedisAllowlist wraps a go-redis client.
func NewRedisAllowlist(client redis.Cmdable) *RedisAllowlist {
	return &RedisAllowlist{client: client}
}

// Add records tokenID until ttl elapses.
func (r *RedisAllowlist) Add(ctx context.Context, tokenID string, ttl time.Duration) error {
	return r.client.Set(ctx, keyPrefix+tokenID, 1, ttl).Err()
}

// Exists reports whether tokenID is still live.
func (r *RedisAllowlist) Exists(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return n > 0, nil
}

// Remove deletes tokenID.
func (r *RedisAllowlist) Remove(ctx context.Context, tokenID string) error {
	return r.client.Del(ctx, keyPrefix+tokenID).Err()
}
