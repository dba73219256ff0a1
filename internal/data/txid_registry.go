package data

import (
	"context"
	"fmt"
	"time"

	"PayLane/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// RedisTxnRegistry is the redis-backed "seen transaction id" registry used
// when multiple instances must share webhook de-duplication. SETNX gives an
// atomic add-if-absent; the TTL bounds memory the same way the in-process
// cache does.
type RedisTxnRegistry struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Helper
}

// NewRedisTxnRegistry creates the registry from the routing configuration.
func NewRedisTxnRegistry(c *conf.Routing, rdb *redis.Client, logger log.Logger) *RedisTxnRegistry {
	ttl := time.Hour
	if c != nil && c.TxnCache != nil && c.TxnCache.TTL > 0 {
		ttl = c.TxnCache.TTL
	}
	return &RedisTxnRegistry{
		rdb:    rdb,
		ttl:    ttl,
		logger: log.NewHelper(logger),
	}
}

// Has reports whether the transaction id has been seen.
func (r *RedisTxnRegistry) Has(ctx context.Context, id string) (bool, error) {
	if r.rdb == nil {
		return false, fmt.Errorf("txn registry: redis client is nil")
	}

	count, err := r.rdb.Exists(ctx, BuildCacheKey(CacheKeyTxn, id)).Result()
	if err != nil {
		return false, fmt.Errorf("txn registry: failed to check %s: %w", id, err)
	}
	return count > 0, nil
}

// Add records the transaction id atomically, returning false when it was
// already present.
func (r *RedisTxnRegistry) Add(ctx context.Context, id string) (bool, error) {
	if r.rdb == nil {
		return false, fmt.Errorf("txn registry: redis client is nil")
	}

	added, err := r.rdb.SetNX(ctx, BuildCacheKey(CacheKeyTxn, id), "1", r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("txn registry: failed to add %s: %w", id, err)
	}

	if !added {
		r.logger.Debugw("msg", "duplicate transaction id", "txn_id", id)
	}
	return added, nil
}
