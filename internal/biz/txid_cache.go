package biz

import (
	"context"
	"time"

	"PayLane/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TransactionRegistry answers "have I seen this provider transaction id"
// for webhook de-duplication. Implementations: the in-process
// TransactionIdCache below, and the redis-backed registry in the data layer
// for multi-instance deployments.
type TransactionRegistry interface {
	// Has reports whether the id has been seen before.
	Has(ctx context.Context, id string) (bool, error)
	// Add records the id, returning false when it was already present.
	Add(ctx context.Context, id string) (bool, error)
}

// TransactionIdCache is a bounded seen-set of provider transaction ids.
// It is a cheaper duplicate guard than the idempotency store: no response
// payload, only a yes/no "seen before". Entries expire after the TTL and
// the capacity bound evicts the oldest-inserted id.
type TransactionIdCache struct {
	cache  *expirable.LRU[string, time.Time]
	logger *log.Helper
}

// NewTransactionIdCache creates a cache from the routing configuration.
func NewTransactionIdCache(c *conf.Routing, logger log.Logger) *TransactionIdCache {
	maxIDs := 10000
	ttl := time.Hour
	if c != nil && c.TxnCache != nil {
		if c.TxnCache.MaxIDs > 0 {
			maxIDs = c.TxnCache.MaxIDs
		}
		if c.TxnCache.TTL > 0 {
			ttl = c.TxnCache.TTL
		}
	}

	// Lookups go through Contains/Peek which do not bump recency, so the
	// LRU's eviction order stays insertion order.
	return &TransactionIdCache{
		cache:  expirable.NewLRU[string, time.Time](maxIDs, nil, ttl),
		logger: log.NewHelper(logger),
	}
}

// Has implements TransactionRegistry.
func (c *TransactionIdCache) Has(_ context.Context, id string) (bool, error) {
	return c.cache.Contains(id), nil
}

// Add implements TransactionRegistry. Returns false when the id is a
// duplicate.
func (c *TransactionIdCache) Add(_ context.Context, id string) (bool, error) {
	if c.cache.Contains(id) {
		return false, nil
	}
	c.cache.Add(id, time.Now())
	return true, nil
}

// Size returns the number of live ids.
func (c *TransactionIdCache) Size() int {
	return c.cache.Len()
}

// Clear drops every id.
func (c *TransactionIdCache) Clear() {
	c.cache.Purge()
}
