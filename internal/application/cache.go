package application

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	repo "github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
)

// Cache key namespaces
const (
	productListPrefix = "products:"
	categoriesKey     = "products:categories"
	featuredKey       = "products:featured"
)

func productKey(id string) string { return "product:" + id }

func productListKey(page, limit int, search, category, sortBy, order string) string {
	return fmt.Sprintf("products:list:%d:%d:%s:%s:%s:%s", page, limit, search, category, sortBy, order)
}

// productInfoKey sorts a copy of ids so the key is order-independent.
func productInfoKey(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return "products:info:" + strings.Join(sorted, ",")
}

func cartKey(userID string) string { return "cart:" + userID }

func orderListPrefix(userID string) string { return "orders:" + userID + ":" }

func orderListKey(userID string, page, limit int, status string) string {
	return fmt.Sprintf("%s%d:%d:%s", orderListPrefix(userID), page, limit, status)
}

func blacklistKey(token string) string { return "bl_" + token }

func mfaUsedKey(userID, token string) string { return "mfa:used:" + userID + ":" + token }

// CacheStats is published under /debug/vars as "cache".
var CacheStats = expvar.NewMap("cache")

// cacheAside wraps the Cache so a cache failure never fails a request.
// Read errors count as misses, write and delete errors are logged.
type cacheAside struct {
	cache  repo.Cache
	logger *logrus.Logger
}

func newCacheAside(c repo.Cache, logger *logrus.Logger) cacheAside {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return cacheAside{cache: c, logger: logger}
}

// get decodes key into dest and reports a hit.
func (ca cacheAside) get(ctx context.Context, key string, dest any) bool {
	if ca.cache == nil {
		return false
	}
	b, err := ca.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repo.ErrCacheMiss) {
			CacheStats.Add("miss", 1)
		} else {
			CacheStats.Add("error", 1)
			ca.logger.WithError(err).WithField("key", key).Warn("cache get failed")
		}
		return false
	}
	if err := json.Unmarshal(b, dest); err != nil {
		CacheStats.Add("error", 1)
		ca.logger.WithError(err).WithField("key", key).Warn("cache entry undecodable")
		return false
	}
	CacheStats.Add("hit", 1)
	return true
}

func (ca cacheAside) set(ctx context.Context, key string, v any, ttl time.Duration) {
	ca.trySet(ctx, key, v, ttl)
}

// trySet is set for callers that must know whether the value was stored.
func (ca cacheAside) trySet(ctx context.Context, key string, v any, ttl time.Duration) bool {
	if ca.cache == nil {
		return false
	}
	b, err := json.Marshal(v)
	if err != nil {
		ca.logger.WithError(err).WithField("key", key).Warn("cache encode failed")
		return false
	}
	if err := ca.cache.Set(ctx, key, b, ttl); err != nil {
		CacheStats.Add("error", 1)
		ca.logger.WithError(err).WithField("key", key).Warn("cache set failed")
		return false
	}
	return true
}

func (ca cacheAside) del(ctx context.Context, keys ...string) {
	if ca.cache == nil || len(keys) == 0 {
		return
	}
	if err := ca.cache.Delete(ctx, keys...); err != nil {
		CacheStats.Add("error", 1)
		ca.logger.WithError(err).WithField("keys", keys).Warn("cache delete failed")
	}
}

func (ca cacheAside) delPrefix(ctx context.Context, prefix string) {
	if ca.cache == nil {
		return
	}
	if err := ca.cache.DeletePrefix(ctx, prefix); err != nil {
		CacheStats.Add("error", 1)
		ca.logger.WithError(err).WithField("prefix", prefix).Warn("cache prefix delete failed")
	}
}
