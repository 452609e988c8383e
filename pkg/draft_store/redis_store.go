package draft_store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each draft key as a separate redis string. A zero ttl keeps values forever.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(namespace, key string) string {
	return fmt.Sprintf("onboarding:%s:%s", namespace, key)
}

func (r *RedisStore) Load(ctx context.Context, namespace, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, redisKey(namespace, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (r *RedisStore) Save(ctx context.Context, namespace, key string, value []byte) error {
	return r.client.Set(ctx, redisKey(namespace, key), value, r.ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, namespace, key string) error {
	return r.client.Del(ctx, redisKey(namespace, key)).Err()
}
