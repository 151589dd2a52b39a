package store

import (
	"context"
	"testing"
	"time"

	memkv "github.com/leafsii/leafsii-cms/pkg/kv/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	cache := NewCache(memkv.NewStore(), nil)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	value := map[string]interface{}{"message": "hello world"}
	require.NoError(t, cache.Set(ctx, "test:key", value, time.Minute))

	var got map[string]interface{}
	require.NoError(t, cache.Get(ctx, "test:key", &got))
	assert.Equal(t, "hello world", got["message"])

	ok, err := cache.Exists(ctx, "test:key")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, cache.Delete(ctx, "test:key"))
	assert.ErrorIs(t, cache.Get(ctx, "test:key", &got), ErrCacheMiss)
	assert.NoError(t, cache.Delete(ctx))
	assert.NoError(t, cache.Ping(ctx))
}

func TestCacheExpiry(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", "v", 20*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	var got string
	assert.ErrorIs(t, cache.Get(ctx, "short", &got), ErrCacheMiss)
}
