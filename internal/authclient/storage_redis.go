package authclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStorage shares persisted credentials between processes, e.g. several
// portalctl invocations on different hosts acting as the same user.
type RedisStorage struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStorage(client redis.UniversalClient, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = "portal:"
	}
	return &RedisStorage{client: client, prefix: prefix}
}

// NewRedisStorageFromURL parses a redis:// URL and pings the server.
func NewRedisStorageFromURL(ctx context.Context, rawURL string, prefix string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStorage(client, prefix), nil
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return value, true, nil
}

func (r *RedisStorage) Set(ctx context.Context, key string, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisStorage) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, r.prefix+key)
	}
	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
