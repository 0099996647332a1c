package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoValue is returned when a one-shot key is absent or already consumed.
var ErrNoValue = errors.New("store: no value")

// Redis wraps a Redis client for rate-limit counters and one-shot tokens.
type Redis struct {
	client *redis.Client
}

// NewRedis creates and pings a Redis client with optional password auth.
func NewRedis(ctx context.Context, addr, password string) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{client: rdb}, nil
}

// Close closes the underlying connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// IncrWindow increments the counter at key, starting a fresh expiry window
// when the key is new, and returns the count within the current window.
func (r *Redis) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// SetOnce stores a value under key with a TTL.
func (r *Redis) SetOnce(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// TakeOnce atomically reads and deletes the value at key, so each token can
// be consumed at most once. Returns ErrNoValue when absent or expired.
func (r *Redis) TakeOnce(ctx context.Context, key string) (string, error) {
	val, err := r.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoValue
	}
	return val, err
}
