package data

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testProviderMeta is a test struct for serialization
type testProviderMeta struct {
	Name        string  `json:"name"`
	FeePercent  float64 `json:"fee_percent"`
	Reliability float64 `json:"reliability"`
	Active      bool    `json:"active"`
}

func setupTestCache(t *testing.T) (CacheClient, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return NewCacheClient(rdb), mr
}

func TestCacheSetAndGet(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()

	ctx := context.Background()
	meta := testProviderMeta{
		Name:        "mpesa",
		FeePercent:  1.5,
		Reliability: 95,
		Active:      true,
	}

	key := BuildCacheKey(CacheKeyProvider, "mpesa")
	require.NoError(t, cache.Set(ctx, key, meta, TTLProvider))

	var got testProviderMeta
	require.NoError(t, cache.Get(ctx, key, &got))
	assert.Equal(t, meta, got)
}

func TestCacheGet_Missing(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()

	var got testProviderMeta
	err := cache.Get(context.Background(), "provider:ghost", &got)
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestCacheGet_ExpiredKey(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()

	ctx := context.Background()
	key := BuildCacheKey(CacheKeyProvider, "mpesa")
	require.NoError(t, cache.Set(ctx, key, testProviderMeta{Name: "mpesa"}, time.Minute))

	mr.FastForward(2 * time.Minute)

	var got testProviderMeta
	err := cache.Get(ctx, key, &got)
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestCacheDelete(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()

	ctx := context.Background()
	key := BuildCacheKey(CacheKeyProvider, "mpesa")
	require.NoError(t, cache.Set(ctx, key, testProviderMeta{Name: "mpesa"}, time.Minute))

	exists, err := cache.Exists(ctx, key)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, cache.Delete(ctx, key))

	exists, err = cache.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCacheNilClient(t *testing.T) {
	cache := NewCacheClient(nil)
	ctx := context.Background()

	var got testProviderMeta
	assert.Error(t, cache.Get(ctx, "k", &got))
	assert.Error(t, cache.Set(ctx, "k", got, time.Minute))
	assert.Error(t, cache.Delete(ctx, "k"))
	_, err := cache.Exists(ctx, "k")
	assert.Error(t, err)
}

func TestBuildCacheKey(t *testing.T) {
	assert.Equal(t, "health:snapshot", BuildCacheKey(CacheKeyHealth, "snapshot"))
	assert.Equal(t, "txn:mpesa:TX1", BuildCacheKey(CacheKeyTxn, "mpesa", "TX1"))
	assert.Equal(t, "provider", BuildCacheKey(CacheKeyProvider))
}
