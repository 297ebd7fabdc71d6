package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces agent keys inside a shared Redis database.
const DefaultRedisPrefix = "session:"

type redisRepo struct {
	client *redis.Client
	prefix string
}

// NewRedis stores entries as plain Redis strings without expiry.
func NewRedis(client *redis.Client, prefix string) Repository {
	return &redisRepo{client: client, prefix: prefix}
}

func (r *redisRepo) key(k string) string {
	return r.prefix + k
}

func (r *redisRepo) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}
	return v, true, nil
}

func (r *redisRepo) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *redisRepo) MultiSet(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	pairs := make([]interface{}, 0, len(entries)*2)
	for k, v := range entries {
		pairs = append(pairs, r.key(k), v)
	}
	if err := r.client.MSet(ctx, pairs...).Err(); err != nil {
		return fmt.Errorf("redis mset failed: %w", err)
	}
	return nil
}

func (r *redisRepo) MultiGet(ctx context.Context, keys []string) ([]*string, error) {
	out := make([]*string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.key(k)
	}
	vals, err := r.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget failed: %w", err)
	}
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[i] = &s
		}
	}
	return out, nil
}

func (r *redisRepo) MultiRemove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.key(k)
	}
	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *redisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
