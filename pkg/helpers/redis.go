package helpers

import (
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds the client shared by the cache and the rate limiter.
// addrs is comma-separated: one address yields a plain client, several a
// cluster client. opTimeout bounds each read and write.
func NewRedisClient(addrs, password string, db int, opTimeout time.Duration) redis.UniversalClient {
	opts := &redis.UniversalOptions{
		Addrs:       splitList(addrs),
		Password:    password,
		DB:          db,
		DialTimeout: 2 * time.Second,
		PoolSize:    20,
	}
	if opTimeout > 0 {
		opts.ReadTimeout = opTimeout
		opts.WriteTimeout = opTimeout
	}
	return redis.NewUniversalClient(opts)
}

// splitList splits a comma-separated setting, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
