package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisObjects keeps the ledger object as a single Redis string value under
// "<bucket>:<key>". No TTL: retention trimming, not expiry, bounds the
// ledger.
type RedisObjects struct {
	client *redis.Client
	key    string
}

var _ ObjectStore = (*RedisObjects)(nil)

func NewRedisObjects(client *redis.Client, bucket, key string) *RedisObjects {
	return &RedisObjects{client: client, key: bucket + ":" + key}
}

func (r *RedisObjects) Get(ctx context.Context) ([]byte, error) {
	body, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	return body, nil
}

func (r *RedisObjects) Put(ctx context.Context, body []byte) error {
	if err := r.client.Set(ctx, r.key, body, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}
