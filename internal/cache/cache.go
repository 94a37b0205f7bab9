// Package cache is a capability interface with two implementations:
// a redis-backed cache and a no-op fallback. The backend is chosen
// once at startup, so callers never branch on availability.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const ProgressTTL = 5 * time.Minute

type Cache interface {
	GetJSON(key string, dest any) (bool, error)
	SetJSON(key string, value any, ttl time.Duration) error
	Delete(key string) error
}

// --- redis backend ---

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (c *RedisCache) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) GetJSON(key string, dest any) (bool, error) {
	raw, err := c.client.Get(context.Background(), key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) SetJSON(key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(context.Background(), key, raw, ttl).Err()
}

func (c *RedisCache) Delete(key string) error {
	return c.client.Del(context.Background(), key).Err()
}

func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// --- no-op backend ---

type NoopCache struct{}

func (NoopCache) GetJSON(string, any) (bool, error)          { return false, nil }
func (NoopCache) SetJSON(string, any, time.Duration) error   { return nil }
func (NoopCache) Delete(string) error                        { return nil }
