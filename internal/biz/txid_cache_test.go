package biz

import (
	"context"
	"testing"
	"time"

	"PayLane/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTxnCache(t *testing.T, maxIDs int, ttl time.Duration) *TransactionIdCache {
	t.Helper()
	c := &conf.Routing{TxnCache: &conf.TxnCache{MaxIDs: maxIDs, TTL: ttl}}
	return NewTransactionIdCache(c, log.DefaultLogger)
}

func TestTransactionIdCache_AddOnce(t *testing.T) {
	cache := newTestTxnCache(t, 100, time.Hour)
	ctx := context.Background()

	seen, err := cache.Has(ctx, "mpesa:TX1")
	require.NoError(t, err)
	assert.False(t, seen)

	added, err := cache.Add(ctx, "mpesa:TX1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = cache.Add(ctx, "mpesa:TX1")
	require.NoError(t, err)
	assert.False(t, added)

	seen, err = cache.Has(ctx, "mpesa:TX1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestTransactionIdCache_ProviderScopedIds(t *testing.T) {
	cache := newTestTxnCache(t, 100, time.Hour)
	ctx := context.Background()

	added, _ := cache.Add(ctx, "mpesa:TX1")
	assert.True(t, added)

	// The same raw id from another provider is a different key.
	added, _ = cache.Add(ctx, "wise:TX1")
	assert.True(t, added)
	assert.Equal(t, 2, cache.Size())
}

func TestTransactionIdCache_CapacityEvictsOldest(t *testing.T) {
	cache := newTestTxnCache(t, 2, time.Hour)
	ctx := context.Background()

	cache.Add(ctx, "a")
	cache.Add(ctx, "b")
	cache.Add(ctx, "c")

	assert.Equal(t, 2, cache.Size())
	seen, _ := cache.Has(ctx, "a")
	assert.False(t, seen)
	seen, _ = cache.Has(ctx, "c")
	assert.True(t, seen)
}

func TestTransactionIdCache_TTLExpiry(t *testing.T) {
	cache := newTestTxnCache(t, 100, 50*time.Millisecond)
	ctx := context.Background()

	cache.Add(ctx, "mpesa:TX1")

	assert.Eventually(t, func() bool {
		seen, _ := cache.Has(ctx, "mpesa:TX1")
		return !seen
	}, 2*time.Second, 20*time.Millisecond)

	// Expired id can be added again.
	added, _ := cache.Add(ctx, "mpesa:TX1")
	assert.True(t, added)
}

func TestTransactionIdCache_Clear(t *testing.T) {
	cache := newTestTxnCache(t, 100, time.Hour)
	ctx := context.Background()

	cache.Add(ctx, "a")
	cache.Add(ctx, "b")
	require.Equal(t, 2, cache.Size())

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}
