package repository

import (
	"context"
	"time"
)

// CacheRepository is a read-through cache for rendered API responses
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
