package handoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisChannel keeps hand-off entries in Redis so they survive a restart
// and are shared across replicas.
type RedisChannel struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to addr and verifies the connection before returning.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*RedisChannel, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("handoff: connect redis %s: %w", addr, err)
	}
	return &RedisChannel{client: client, ttl: ttl}, nil
}

func (c *RedisChannel) Set(ctx context.Context, accountID, key, value string) error {
	if err := c.client.Set(ctx, scopedKey(accountID, key), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("handoff: set %s: %w", key, err)
	}
	return nil
}

func (c *RedisChannel) Get(ctx context.Context, accountID, key string) (string, error) {
	val, err := c.client.Get(ctx, scopedKey(accountID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("handoff: get %s: %w", key, err)
	}
	return val, nil
}

// Take removes the entry atomically with the read.
func (c *RedisChannel) Take(ctx context.Context, accountID, key string) (string, error) {
	val, err := c.client.GetDel(ctx, scopedKey(accountID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("handoff: take %s: %w", key, err)
	}
	return val, nil
}

func (c *RedisChannel) Delete(ctx context.Context, accountID string, keys ...string) error {
	scoped := make([]string, len(keys))
	for i, k := range keys {
		scoped[i] = scopedKey(accountID, k)
	}
	if err := c.client.Del(ctx, scoped...).Err(); err != nil {
		return fmt.Errorf("handoff: delete: %w", err)
	}
	return nil
}

func (c *RedisChannel) Close() error {
	return c.client.Close()
}
