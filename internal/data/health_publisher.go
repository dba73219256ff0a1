package data

import (
	"context"
	"fmt"

	"PayLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// HealthSnapshotPublisher shares the aggregated health result through the
// cache so sibling instances and load balancers can read it without probing
// the providers themselves.
type HealthSnapshotPublisher struct {
	cache  CacheClient
	logger *log.Helper
}

// NewHealthSnapshotPublisher creates the publisher.
func NewHealthSnapshotPublisher(cache CacheClient, logger log.Logger) *HealthSnapshotPublisher {
	return &HealthSnapshotPublisher{
		cache:  cache,
		logger: log.NewHelper(logger),
	}
}

// PublishHealth writes the snapshot under health:snapshot with a short TTL
// so a crashed instance's stale snapshot ages out on its own.
func (p *HealthSnapshotPublisher) PublishHealth(ctx context.Context, result *model.HealthResult) error {
	if err := p.cache.Set(ctx, BuildCacheKey(CacheKeyHealth, "snapshot"), result, TTLHealthSnapshot); err != nil {
		return fmt.Errorf("failed to publish health snapshot: %w", err)
	}
	return nil
}

// ReadHealth fetches the last published snapshot, for instances that serve
// readiness without running their own monitor.
func (p *HealthSnapshotPublisher) ReadHealth(ctx context.Context) (*model.HealthResult, error) {
	var result model.HealthResult
	if err := p.cache.Get(ctx, BuildCacheKey(CacheKeyHealth, "snapshot"), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
