package cache_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/cache"
)

func newTestRedisCache(t *testing.T) *cache.RedisCache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rc, err := cache.NewRedisCache(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestListenerCache_HasListenerIsFalseUntilSet(t *testing.T) {
	redisCache := newTestRedisCache(t)
	lc := cache.NewListenerCache(redisCache)
	ctx := context.Background()

	require.False(t, lc.HasListener(ctx, "nsv-1", "mock"))

	require.NoError(t, lc.SetListener(ctx, "nsv-1", "mock"))
	require.True(t, lc.HasListener(ctx, "nsv-1", "mock"))
}

func TestListenerCache_StagesAreIndependent(t *testing.T) {
	redisCache := newTestRedisCache(t)
	lc := cache.NewListenerCache(redisCache)
	ctx := context.Background()

	require.NoError(t, lc.SetListener(ctx, "nsv-1", "mock"))

	require.True(t, lc.HasListener(ctx, "nsv-1", "mock"))
	require.False(t, lc.HasListener(ctx, "nsv-1", "real"))
}

func TestListenerCache_ClearListenersRemovesBothStages(t *testing.T) {
	redisCache := newTestRedisCache(t)
	lc := cache.NewListenerCache(redisCache)
	ctx := context.Background()

	require.NoError(t, lc.SetListener(ctx, "nsv-1", "mock"))
	require.NoError(t, lc.SetListener(ctx, "nsv-1", "real"))

	require.NoError(t, lc.ClearListeners(ctx, "nsv-1"))

	require.False(t, lc.HasListener(ctx, "nsv-1", "mock"))
	require.False(t, lc.HasListener(ctx, "nsv-1", "real"))
}

func TestListenerCache_HasListenerTreatsMissAsFalseEvenOnLookupError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	redisCache, err := cache.NewRedisCache(mr.Addr(), "", 0)
	require.NoError(t, err)
	lc := cache.NewListenerCache(redisCache)

	// Closing the backing connection mid-flight makes the Exists lookup
	// fail; HasListener must degrade to "no listener" rather than panic
	// or propagate the error, since a transient Redis hiccup shouldn't
	// block scheduling a node that has no listener attached anyway.
	mr.Close()

	require.False(t, lc.HasListener(context.Background(), "nsv-1", "mock"))
}
