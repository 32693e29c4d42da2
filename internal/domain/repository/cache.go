package repository

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a key-value store with TTL expiry. It has no knowledge of entity
// relationships; callers decide what to populate and invalidate.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set overwrites unconditionally. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Ping(ctx context.Context) error
}
