package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
)

const keyPrefix = "session:"

// RedisCache implements Cache on a Redis client.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (domain.Identity, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Identity{}, false, nil
	}
	if err != nil {
		return domain.Identity{}, false, fmt.Errorf("redis get: %w", err)
	}
	var id domain.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return domain.Identity{}, false, fmt.Errorf("decode cached identity: %w", err)
	}
	return id, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, id domain.Identity, ttl time.Duration) error {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

var _ Cache = (*RedisCache)(nil)
