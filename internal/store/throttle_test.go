package store

import (
	"context"
	"testing"
	"time"

	memkv "github.com/leafsii/leafsii-cms/pkg/kv/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginThrottle(t *testing.T) {
	store := memkv.NewStore()
	defer store.Close()
	throttle := NewLoginThrottle(store, 3, time.Minute)
	ctx := context.Background()
	key := "admin|127.0.0.1"

	for i := 1; i <= 3; i++ {
		ok, err := throttle.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i)

		n, err := throttle.Fail(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(i), n)
	}

	ok, err := throttle.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := store.TTL(ctx, throttleKey(key))
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, throttle.Reset(ctx, key))
	ok, err = throttle.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoginThrottleWindow(t *testing.T) {
	store := memkv.NewStore()
	defer store.Close()
	throttle := NewLoginThrottle(store, 1, 30*time.Millisecond)
	ctx := context.Background()

	_, err := throttle.Fail(ctx, "k")
	require.NoError(t, err)
	ok, err := throttle.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	time.Sleep(80 * time.Millisecond)
	ok, err = throttle.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoginThrottleDisabled(t *testing.T) {
	throttle := NewLoginThrottle(memkv.NewStore(), 0, time.Minute)

	_, err := throttle.Fail(context.Background(), "k")
	require.NoError(t, err)
	ok, err := throttle.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
}
