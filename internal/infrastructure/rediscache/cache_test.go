package rediscache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, 200*time.Millisecond), mr
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	_, err := c.Get(ctx, "cart:u1")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "cart:u1", []byte(`{"items":[]}`), 30*time.Minute))
	got, err := c.Get(ctx, "cart:u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(got))
	assert.Equal(t, 30*time.Minute, mr.TTL("cart:u1"))

	require.NoError(t, c.Delete(ctx, "cart:u1", "missing"))
	assert.False(t, mr.Exists("cart:u1"))
	require.NoError(t, c.Delete(ctx))
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.Set(ctx, "bl_token", []byte("true"), time.Hour))
	mr.FastForward(time.Hour + time.Second)

	_, err := c.Get(ctx, "bl_token")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestDeletePrefixScansAllPages(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	for i := 0; i < 1200; i++ {
		require.NoError(t, mr.Set(fmt.Sprintf("products:list:%d:10::::createdAt:desc", i), "x"))
	}
	require.NoError(t, mr.Set("product:42", "keep"))
	require.NoError(t, mr.Set("orders:u1:1:10:", "keep"))

	require.NoError(t, c.DeletePrefix(ctx, "products:"))

	for _, k := range mr.Keys() {
		assert.NotContains(t, k, "products:")
	}
	assert.True(t, mr.Exists("product:42"))
	assert.True(t, mr.Exists("orders:u1:1:10:"))
}

func TestDeletePrefixOnClusterWalksEveryMaster(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClusterClient(&redis.ClusterOptions{Addrs: []string{mr.Addr()}})
	t.Cleanup(func() { _ = rdb.Close() })
	c := New(rdb, 200*time.Millisecond)

	for i := 0; i < 3*scanCount+50; i++ {
		require.NoError(t, mr.Set(fmt.Sprintf("orders:u%d:1:10:", i), "x"))
	}
	require.NoError(t, mr.Set("order:7", "keep"))

	require.NoError(t, c.DeletePrefix(ctx, "orders:"))

	assert.Equal(t, []string{"order:7"}, mr.Keys())
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `orders:a\*:\?\[x\]`, escapeGlob("orders:a*:?[x]"))
	assert.Equal(t, "products:", escapeGlob("products:"))
}

func TestErrorsWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	mr.Close()

	_, err := c.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrCacheMiss)
	assert.Error(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.Error(t, c.Ping(ctx))
}
