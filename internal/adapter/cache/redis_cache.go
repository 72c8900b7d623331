// Package cache provides the redis-backed response cache. Cache faults
// degrade to misses so redis outages never fail a payment request.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/payment-processing/internal/domain/repository"
)

type redisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache creates a redis-backed cache repository
func NewRedisCache(client *redis.Client, logger *zap.Logger) repository.CacheRepository {
	return &redisCache{client: client, logger: logger}
}

// Get returns nil with no error on a cache miss
func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	return val, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}
