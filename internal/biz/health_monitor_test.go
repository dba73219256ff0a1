package biz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"PayLane/internal/conf"
	"PayLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthyProbe(ctx context.Context) model.ProbeResult {
	return model.ProbeResult{Healthy: true, ResponseTime: 5 * time.Millisecond}
}

func failingProbe(msg string) HealthCheckFunc {
	return func(ctx context.Context) model.ProbeResult {
		return model.ProbeResult{Healthy: false, Error: msg}
	}
}

func newTestMonitor(t *testing.T, critical []string, sinks ...EventSink) *HealthMonitor {
	t.Helper()
	c := &conf.Routing{
		Health: &conf.Health{
			CheckInterval:     time.Minute,
			Timeout:           time.Second,
			FailureThreshold:  3,
			CriticalProviders: critical,
		},
	}
	return NewHealthMonitor(c, nil, nil, "", log.DefaultLogger, sinks)
}

func TestHealthMonitor_ReportsServiceVersion(t *testing.T) {
	c := &conf.Routing{Health: &conf.Health{CheckInterval: time.Minute, Timeout: time.Second, FailureThreshold: 3}}
	m := NewHealthMonitor(c, nil, nil, ServiceVersion("v1.2.3"), log.DefaultLogger, nil)
	m.RegisterProvider("mpesa", healthyProbe)

	result := m.HealthResult()
	assert.Equal(t, "v1.2.3", result.Version)
}

func TestHealthMonitor_UnknownBeforeFirstCheck(t *testing.T) {
	m := newTestMonitor(t, nil)
	m.RegisterProvider("mpesa", healthyProbe)

	result := m.HealthResult()
	require.Len(t, result.Providers, 1)
	assert.Equal(t, model.HealthUnknown, result.Providers[0].Status)
	assert.Equal(t, model.HealthHealthy, result.Status)
}

func TestHealthMonitor_DegradedBeforeThresholdUnhealthyAfter(t *testing.T) {
	m := newTestMonitor(t, nil)
	m.RegisterProvider("mpesa", failingProbe("connection refused"))

	ctx := context.Background()

	h := m.CheckProvider(ctx, "mpesa")
	assert.Equal(t, model.HealthDegraded, h.Status)

	h = m.CheckProvider(ctx, "mpesa")
	assert.Equal(t, model.HealthDegraded, h.Status)

	h = m.CheckProvider(ctx, "mpesa")
	assert.Equal(t, model.HealthUnhealthy, h.Status)
	assert.Equal(t, "connection refused", h.Error)
}

func TestHealthMonitor_SuccessResetsFailureCounter(t *testing.T) {
	m := newTestMonitor(t, nil)

	healthy := false
	m.RegisterProvider("mpesa", func(ctx context.Context) model.ProbeResult {
		return model.ProbeResult{Healthy: healthy, Error: "flaky"}
	})

	ctx := context.Background()
	m.CheckProvider(ctx, "mpesa")
	m.CheckProvider(ctx, "mpesa")

	healthy = true
	h := m.CheckProvider(ctx, "mpesa")
	assert.Equal(t, model.HealthHealthy, h.Status)

	// Counter restarted: two more failures only reach degraded.
	healthy = false
	m.CheckProvider(ctx, "mpesa")
	h = m.CheckProvider(ctx, "mpesa")
	assert.Equal(t, model.HealthDegraded, h.Status)
}

func TestHealthMonitor_CriticalProviderDrivesOverallStatus(t *testing.T) {
	m := newTestMonitor(t, []string{"mpesa"})
	m.RegisterProvider("mpesa", failingProbe("down"))
	m.RegisterProvider("wise", healthyProbe)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		m.CheckProvider(ctx, "mpesa")
	}
	m.CheckProvider(ctx, "wise")

	result := m.HealthResult()
	assert.Equal(t, model.HealthUnhealthy, result.Status)
	assert.Equal(t, 503, m.HTTPStatusCode())
	assert.Equal(t, 1, result.Summary.Unhealthy)
	assert.Equal(t, 1, result.Summary.Healthy)
}

func TestHealthMonitor_NonCriticalUnhealthyOnlyDegrades(t *testing.T) {
	m := newTestMonitor(t, []string{"mpesa"})
	m.RegisterProvider("mpesa", healthyProbe)
	m.RegisterProvider("wise", failingProbe("down"))

	ctx := context.Background()
	m.CheckProvider(ctx, "mpesa")
	for i := 0; i < 3; i++ {
		m.CheckProvider(ctx, "wise")
	}

	result := m.HealthResult()
	assert.Equal(t, model.HealthDegraded, result.Status)
	assert.Equal(t, 200, m.HTTPStatusCode())
}

func TestHealthMonitor_ProbeTimeoutCountsAsFailure(t *testing.T) {
	c := &conf.Routing{Health: &conf.Health{CheckInterval: time.Minute, Timeout: 50 * time.Millisecond, FailureThreshold: 3}}
	m := NewHealthMonitor(c, nil, nil, "", log.DefaultLogger, nil)
	m.RegisterProvider("slow", func(ctx context.Context) model.ProbeResult {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return model.ProbeResult{Healthy: true}
	})

	h := m.CheckProvider(context.Background(), "slow")
	assert.Equal(t, model.HealthDegraded, h.Status)
	assert.Equal(t, "health check timed out", h.Error)
}

func TestHealthMonitor_ProbePanicCountsAsFailure(t *testing.T) {
	m := newTestMonitor(t, nil)
	m.RegisterProvider("bad", func(ctx context.Context) model.ProbeResult {
		panic("probe exploded")
	})

	h := m.CheckProvider(context.Background(), "bad")
	assert.Equal(t, model.HealthDegraded, h.Status)
	assert.Contains(t, h.Error, "probe panic")
}

func TestHealthMonitor_StatusChangeEvents(t *testing.T) {
	sink := &collectSink{}
	m := newTestMonitor(t, nil, sink)

	healthy := true
	m.RegisterProvider("mpesa", func(ctx context.Context) model.ProbeResult {
		return model.ProbeResult{Healthy: healthy}
	})

	ctx := context.Background()
	m.CheckProvider(ctx, "mpesa")
	require.Len(t, sink.byType(model.EventProviderHealthy), 1)

	healthy = false
	m.CheckProvider(ctx, "mpesa")
	require.Len(t, sink.byType(model.EventProviderDegraded), 1)

	// Same status again emits no further event.
	m.CheckProvider(ctx, "mpesa")
	require.Len(t, sink.byType(model.EventProviderDegraded), 1)

	m.CheckProvider(ctx, "mpesa")
	require.Len(t, sink.byType(model.EventProviderUnhealthy), 1)
}

func TestHealthMonitor_ObserveOutcome(t *testing.T) {
	m := newTestMonitor(t, nil)
	m.RegisterProvider("mpesa", healthyProbe)

	// Live failures feed the same counters as probes.
	m.ObserveOutcome("mpesa", false, errors.New("declined upstream"))
	m.ObserveOutcome("mpesa", false, errors.New("declined upstream"))
	m.ObserveOutcome("mpesa", false, errors.New("declined upstream"))

	result := m.HealthResult()
	require.Len(t, result.Providers, 1)
	assert.Equal(t, model.HealthUnhealthy, result.Providers[0].Status)

	// Unknown providers are ignored.
	m.ObserveOutcome("ghost", false, errors.New("x"))
	assert.Len(t, m.HealthResult().Providers, 1)
}

func TestHealthMonitor_RunAllChecksPublishesSnapshot(t *testing.T) {
	published := make(chan *model.HealthResult, 1)
	publisher := publisherFunc(func(ctx context.Context, result *model.HealthResult) error {
		select {
		case published <- result:
		default:
		}
		return nil
	})

	c := &conf.Routing{Health: &conf.Health{CheckInterval: time.Minute, Timeout: time.Second, FailureThreshold: 3}}
	m := NewHealthMonitor(c, nil, publisher, "", log.DefaultLogger, nil)
	m.RegisterProvider("mpesa", healthyProbe)
	m.RegisterProvider("wise", healthyProbe)

	m.RunAllChecks(context.Background())

	select {
	case result := <-published:
		assert.Equal(t, model.HealthHealthy, result.Status)
		assert.Equal(t, 2, result.Summary.Total)
	default:
		t.Fatal("expected a published health snapshot")
	}
}

func TestHealthMonitor_StartStop(t *testing.T) {
	var mu sync.Mutex
	checks := 0

	c := &conf.Routing{Health: &conf.Health{CheckInterval: time.Hour, Timeout: time.Second, FailureThreshold: 3}}
	m := NewHealthMonitor(c, nil, nil, "", log.DefaultLogger, nil)
	m.RegisterProvider("mpesa", func(ctx context.Context) model.ProbeResult {
		mu.Lock()
		checks++
		mu.Unlock()
		return model.ProbeResult{Healthy: true}
	})

	m.Start()
	m.Start() // idempotent

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return checks >= 1
	}, time.Second, 10*time.Millisecond)

	m.Stop()
	m.Stop() // idempotent
}

// publisherFunc adapts a function to the HealthPublisher interface.
type publisherFunc func(ctx context.Context, result *model.HealthResult) error

func (f publisherFunc) PublishHealth(ctx context.Context, result *model.HealthResult) error {
	return f(ctx, result)
}
