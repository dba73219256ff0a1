package data

import (
	"context"
	"testing"
	"time"

	"PayLane/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPublisher(t *testing.T) (*HealthSnapshotPublisher, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return NewHealthSnapshotPublisher(NewCacheClient(rdb), log.DefaultLogger), mr
}

func TestHealthSnapshotPublisher_RoundTrip(t *testing.T) {
	p, mr := setupPublisher(t)
	defer mr.Close()

	ctx := context.Background()
	snapshot := &model.HealthResult{
		Status:    model.HealthDegraded,
		Timestamp: time.Now().UTC(),
		Providers: []model.ProviderHealth{
			{Name: "mpesa", Status: model.HealthHealthy},
			{Name: "wise", Status: model.HealthDegraded, Error: "slow responses"},
		},
		Summary: model.HealthSummary{Total: 2, Healthy: 1, Degraded: 1},
	}

	require.NoError(t, p.PublishHealth(ctx, snapshot))

	got, err := p.ReadHealth(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.HealthDegraded, got.Status)
	require.Len(t, got.Providers, 2)
	assert.Equal(t, "wise", got.Providers[1].Name)
	assert.Equal(t, "slow responses", got.Providers[1].Error)
	assert.Equal(t, 2, got.Summary.Total)
}

func TestHealthSnapshotPublisher_SnapshotExpires(t *testing.T) {
	p, mr := setupPublisher(t)
	defer mr.Close()

	ctx := context.Background()
	require.NoError(t, p.PublishHealth(ctx, &model.HealthResult{Status: model.HealthHealthy}))
	require.True(t, mr.Exists("health:snapshot"))

	mr.FastForward(TTLHealthSnapshot + time.Second)

	_, err := p.ReadHealth(ctx)
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestHealthSnapshotPublisher_ReadMissing(t *testing.T) {
	p, mr := setupPublisher(t)
	defer mr.Close()

	_, err := p.ReadHealth(context.Background())
	assert.ErrorIs(t, err, ErrCacheNotFound)
}
