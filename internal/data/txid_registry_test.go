package data

import (
	"context"
	"testing"
	"time"

	"PayLane/internal/conf"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTxnRegistry(t *testing.T, ttl time.Duration) (*RedisTxnRegistry, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	c := &conf.Routing{TxnCache: &conf.TxnCache{TTL: ttl}}
	return NewRedisTxnRegistry(c, rdb, log.DefaultLogger), mr
}

func TestRedisTxnRegistry_AddOnce(t *testing.T) {
	r, mr := setupTxnRegistry(t, time.Hour)
	defer mr.Close()

	ctx := context.Background()

	seen, err := r.Has(ctx, "mpesa:TX1")
	require.NoError(t, err)
	assert.False(t, seen)

	added, err := r.Add(ctx, "mpesa:TX1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = r.Add(ctx, "mpesa:TX1")
	require.NoError(t, err)
	assert.False(t, added)

	seen, err = r.Has(ctx, "mpesa:TX1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestRedisTxnRegistry_KeysArePrefixed(t *testing.T) {
	r, mr := setupTxnRegistry(t, time.Hour)
	defer mr.Close()

	_, err := r.Add(context.Background(), "mpesa:TX1")
	require.NoError(t, err)

	assert.True(t, mr.Exists("txn:mpesa:TX1"))
}

func TestRedisTxnRegistry_TTLExpiry(t *testing.T) {
	r, mr := setupTxnRegistry(t, time.Minute)
	defer mr.Close()

	ctx := context.Background()
	_, err := r.Add(ctx, "mpesa:TX1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	seen, err := r.Has(ctx, "mpesa:TX1")
	require.NoError(t, err)
	assert.False(t, seen)

	added, err := r.Add(ctx, "mpesa:TX1")
	require.NoError(t, err)
	assert.True(t, added)
}

func TestRedisTxnRegistry_NilClient(t *testing.T) {
	r := NewRedisTxnRegistry(nil, nil, log.DefaultLogger)

	ctx := context.Background()
	_, err := r.Has(ctx, "mpesa:TX1")
	assert.Error(t, err)

	_, err = r.Add(ctx, "mpesa:TX1")
	assert.Error(t, err)
}
