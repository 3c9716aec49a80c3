// Package cache wraps redis behind a small interface so callers (and tests)
// never touch the client directly.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a string-valued cache with TTLs. Get returns ok=false on a miss
// so callers can tell "not cached" apart from an empty cached value.
type Cache interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	GenerateKey(operation, key string) string
}

type redisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to redis at addr. prefix namespaces every key so
// multiple services can share one instance.
func NewRedisCache(addr, password, prefix string) Cache {
	return &redisCache{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		prefix: prefix,
	}
}

func (r *redisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *redisCache) GenerateKey(operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, operation, key)
}
