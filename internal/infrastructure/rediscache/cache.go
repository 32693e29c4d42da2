package rediscache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
)

const (
	scanCount = 200
	delBatch  = 500
)

// Cache implements repository.Cache on Redis. Every call is bounded by timeout
// so a degraded Redis cannot stall a request.
type Cache struct {
	rdb     redis.UniversalClient
	timeout time.Duration
}

func New(rdb redis.UniversalClient, timeout time.Duration) *Cache {
	return &Cache{rdb: rdb, timeout: timeout}
}

func (c *Cache) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrCacheMiss
	}
	return b, err
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.rdb.Del(ctx, keys...).Err()
}

// DeletePrefix walks the keyspace with SCAN (never KEYS) and unlinks every
// match. On a cluster each master is walked separately, since SCAN only sees
// the keys of the node it runs on. Each SCAN page and each delete batch gets
// its own timeout, so a large walk is not cut short by a single deadline.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	match := escapeGlob(prefix) + "*"
	if cluster, ok := c.rdb.(*redis.ClusterClient); ok {
		return cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return c.deleteMatching(ctx, node, match)
		})
	}
	return c.deleteMatching(ctx, c.rdb, match)
}

// deleteMatching collects the node's matching keys before deleting, so the
// cursor is not disturbed mid-walk.
func (c *Cache) deleteMatching(ctx context.Context, node redis.Cmdable, match string) error {
	var (
		keys   []string
		cursor uint64
	)
	for {
		page, next, err := c.scanPage(ctx, node, cursor, match)
		if err != nil {
			return err
		}
		keys = append(keys, page...)
		if next == 0 {
			break
		}
		cursor = next
	}
	for len(keys) > 0 {
		n := min(len(keys), delBatch)
		if err := c.unlink(ctx, node, keys[:n]); err != nil {
			return err
		}
		keys = keys[n:]
	}
	return nil
}

func (c *Cache) scanPage(ctx context.Context, node redis.Cmdable, cursor uint64, match string) ([]string, uint64, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return node.Scan(ctx, cursor, match, scanCount).Result()
}

// unlink issues one UNLINK per key in a single pipeline. Matching keys can
// hash to different slots, and a multi-key command across slots is rejected
// by a cluster.
func (c *Cache) unlink(ctx context.Context, node redis.Cmdable, keys []string) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	_, err := node.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Unlink(ctx, k)
		}
		return nil
	})
	return err
}

func (c *Cache) Ping(ctx context.Context) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string { return globReplacer.Replace(s) }

var _ repository.Cache = (*Cache)(nil)
