package sessionstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis hash per session. The hash carries a
// TTL equal to the login-attempt lifetime, refreshed on every write; stale
// state from abandoned attempts disappears on its own.
type RedisStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedisStore creates a Redis-backed store. The namespace keeps login state
// and logout tokens apart when they share one Redis database.
func NewRedisStore(client *redis.Client, namespace string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		namespace: namespace,
		ttl:       ttl,
	}
}

func (r *RedisStore) Put(ctx context.Context, sid, key, value string) error {
	if sid == "" {
		return ErrEmptySessionID
	}

	redisKey := r.key(sid)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, redisKey, key, value)
	pipe.Expire(ctx, redisKey, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sessionstate: put %q: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, sid, key string) (string, error) {
	if sid == "" {
		return "", ErrEmptySessionID
	}

	value, err := r.client.HGet(ctx, r.key(sid), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sessionstate: get %q: %w", key, err)
	}
	return value, nil
}

func (r *RedisStore) Has(ctx context.Context, sid, key string) (bool, error) {
	if sid == "" {
		return false, ErrEmptySessionID
	}

	ok, err := r.client.HExists(ctx, r.key(sid), key).Result()
	if err != nil {
		return false, fmt.Errorf("sessionstate: has %q: %w", key, err)
	}
	return ok, nil
}

func (r *RedisStore) Forget(ctx context.Context, sid string, keys ...string) error {
	if sid == "" {
		return ErrEmptySessionID
	}
	if len(keys) == 0 {
		return nil
	}

	if err := r.client.HDel(ctx, r.key(sid), keys...).Err(); err != nil {
		return fmt.Errorf("sessionstate: forget: %w", err)
	}
	return nil
}

func (r *RedisStore) key(sid string) string {
	return r.namespace + ":" + sid
}
