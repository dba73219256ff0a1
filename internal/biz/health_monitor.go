package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PayLane/internal/conf"
	"PayLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// HealthCheckFunc probes one provider. Implementations are typically an HTTP
// ping or a balance check against the provider API.
type HealthCheckFunc func(ctx context.Context) model.ProbeResult

// HealthPublisher shares the aggregated health snapshot outside the process
// (e.g. redis) after every full check pass. Implementations must tolerate
// being called with a result they cannot deliver.
type HealthPublisher interface {
	PublishHealth(ctx context.Context, result *model.HealthResult) error
}

// ServiceVersion is the build version reported in health snapshots. It is a
// distinct type so the injector can provide it alongside plain strings.
type ServiceVersion string

// HealthConfig holds health monitor settings.
type HealthConfig struct {
	CheckInterval     time.Duration
	Timeout           time.Duration
	FailureThreshold  int
	CriticalProviders []string
	Version           string
}

// HealthMonitor periodically probes registered providers and aggregates a
// system health snapshot for the readiness endpoint.
//
// A provider becomes unhealthy only after FailureThreshold consecutive probe
// failures; any success resets the counter. Overall status is unhealthy iff
// a critical provider is unhealthy, degraded when any provider is degraded
// or (non-critical) unhealthy, healthy otherwise.
type HealthMonitor struct {
	cfg HealthConfig

	mu       sync.RWMutex
	probes   map[string]HealthCheckFunc
	order    []string
	statuses map[string]*model.ProviderHealth
	failures map[string]int

	registry  *CircuitBreakerRegistry
	publisher HealthPublisher

	startedAt time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	running   bool

	logger *log.Helper
	sinks  []EventSink
}

// NewHealthMonitor creates a stopped monitor from the routing configuration.
// The registry is used to attach breaker snapshots to provider health
// records; publisher may be nil.
func NewHealthMonitor(c *conf.Routing, registry *CircuitBreakerRegistry, publisher HealthPublisher, version ServiceVersion, logger log.Logger, sinks []EventSink) *HealthMonitor {
	cfg := HealthConfig{
		CheckInterval:    30 * time.Second,
		Timeout:          5 * time.Second,
		FailureThreshold: 3,
		Version:          string(version),
	}
	if c != nil && c.Health != nil {
		if c.Health.CheckInterval > 0 {
			cfg.CheckInterval = c.Health.CheckInterval
		}
		if c.Health.Timeout > 0 {
			cfg.Timeout = c.Health.Timeout
		}
		if c.Health.FailureThreshold > 0 {
			cfg.FailureThreshold = c.Health.FailureThreshold
		}
		cfg.CriticalProviders = c.Health.CriticalProviders
	}

	return &HealthMonitor{
		cfg:       cfg,
		probes:    make(map[string]HealthCheckFunc),
		statuses:  make(map[string]*model.ProviderHealth),
		failures:  make(map[string]int),
		registry:  registry,
		publisher: publisher,
		startedAt: time.Now(),
		stopChan:  make(chan struct{}),
		logger:    log.NewHelper(logger),
		sinks:     sinks,
	}
}

// RegisterProvider adds a provider probe. Registering an existing name
// replaces its probe but keeps its counters.
func (m *HealthMonitor) RegisterProvider(name string, probe HealthCheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.probes[name]; !exists {
		m.order = append(m.order, name)
		m.statuses[name] = &model.ProviderHealth{
			Name:   name,
			Status: model.HealthUnknown,
		}
	}
	m.probes[name] = probe
	m.logger.Infow("msg", "registered health probe", "provider", name)
}

// UnregisterProvider removes a provider and its health record.
func (m *HealthMonitor) UnregisterProvider(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.probes, name)
	delete(m.statuses, name)
	delete(m.failures, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Start runs one immediate check pass and then repeats every CheckInterval
// until Stop is called.
func (m *HealthMonitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.startedAt = time.Now()
	m.stopChan = make(chan struct{})
	m.mu.Unlock()

	m.wg.Add(1)
	go m.loop()

	m.logger.Infow("msg", "health monitor started", "interval", m.cfg.CheckInterval)
	publish(m.sinks, model.Event{Type: model.EventMonitorStarted})
}

// Stop cancels the periodic checks and waits for the loop to exit.
func (m *HealthMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopChan)
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("health monitor stopped")
	publish(m.sinks, model.Event{Type: model.EventMonitorStopped})
}

func (m *HealthMonitor) loop() {
	defer m.wg.Done()

	// Immediate pass before the first tick
	m.RunAllChecks(context.Background())

	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.RunAllChecks(context.Background())
		case <-m.stopChan:
			return
		}
	}
}

// CheckProvider probes one provider under the configured timeout. A timeout,
// error or probe panic is treated identically to a healthy:false report.
func (m *HealthMonitor) CheckProvider(ctx context.Context, name string) model.ProviderHealth {
	m.mu.RLock()
	probe, ok := m.probes[name]
	m.mu.RUnlock()

	if !ok {
		return model.ProviderHealth{Name: name, Status: model.HealthUnknown}
	}

	result := m.runProbe(ctx, probe)
	return m.recordProbe(name, result)
}

// runProbe races the probe against the timeout. The probe goroutine is not
// forcibly cancelled beyond context cancellation; a timed-out probe is simply
// abandoned.
func (m *HealthMonitor) runProbe(ctx context.Context, probe HealthCheckFunc) model.ProbeResult {
	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	resultCh := make(chan model.ProbeResult, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- model.ProbeResult{
					Healthy: false,
					Error:   fmt.Sprintf("probe panic: %v", r),
				}
			}
		}()
		resultCh <- probe(probeCtx)
	}()

	select {
	case result := <-resultCh:
		if result.ResponseTime == 0 {
			result.ResponseTime = time.Since(start)
		}
		return result
	case <-probeCtx.Done():
		return model.ProbeResult{
			Healthy:      false,
			ResponseTime: time.Since(start),
			Error:        "health check timed out",
		}
	}
}

// recordProbe updates the provider's consecutive-failure counter and status,
// emitting a status event on change.
func (m *HealthMonitor) recordProbe(name string, result model.ProbeResult) model.ProviderHealth {
	m.mu.Lock()

	var status model.HealthStatus
	if result.Healthy {
		m.failures[name] = 0
		status = model.HealthHealthy
	} else {
		m.failures[name]++
		if m.failures[name] >= m.cfg.FailureThreshold {
			status = model.HealthUnhealthy
		} else {
			status = model.HealthDegraded
		}
	}

	prev := model.HealthUnknown
	if existing, ok := m.statuses[name]; ok {
		prev = existing.Status
	}

	health := &model.ProviderHealth{
		Name:         name,
		Status:       status,
		LastChecked:  time.Now(),
		ResponseTime: result.ResponseTime,
		Error:        result.Error,
		Metadata:     result.Metadata,
	}
	if m.registry != nil {
		if cb := m.registry.Get(name); cb != nil {
			st := cb.Status()
			health.Breaker = &st
		}
	}
	m.statuses[name] = health
	m.mu.Unlock()

	if prev != status {
		var evType model.EventType
		switch status {
		case model.HealthHealthy:
			evType = model.EventProviderHealthy
		case model.HealthDegraded:
			evType = model.EventProviderDegraded
		default:
			evType = model.EventProviderUnhealthy
		}
		publish(m.sinks, model.Event{
			Type:     evType,
			Provider: name,
			Details:  map[string]any{"error": result.Error},
		})
	}

	return *health
}

// ObserveOutcome feeds a live payment outcome into the same consecutive
// failure bookkeeping the probes use, so routing failures surface in the
// health snapshot between probe cycles.
func (m *HealthMonitor) ObserveOutcome(name string, healthy bool, err error) {
	m.mu.RLock()
	_, known := m.probes[name]
	m.mu.RUnlock()
	if !known {
		return
	}

	result := model.ProbeResult{Healthy: healthy}
	if err != nil {
		result.Error = err.Error()
	}
	m.recordProbe(name, result)
}

// RunAllChecks probes every registered provider in parallel. Individual
// probe failures are converted to unhealthy records; the pass itself never
// fails.
func (m *HealthMonitor) RunAllChecks(ctx context.Context) {
	m.mu.RLock()
	names := make([]string, len(m.order))
	copy(names, m.order)
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			m.CheckProvider(ctx, name)
		}(name)
	}
	wg.Wait()

	publish(m.sinks, model.Event{
		Type:    model.EventCheckComplete,
		Details: map[string]any{"providers": len(names)},
	})

	if m.publisher != nil {
		result := m.HealthResult()
		if err := m.publisher.PublishHealth(ctx, result); err != nil {
			m.logger.Warnw("msg", "failed to publish health snapshot", "error", err)
		}
	}
}

// HealthResult aggregates the current per-provider records into the
// readiness payload.
func (m *HealthMonitor) HealthResult() *model.HealthResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	critical := make(map[string]bool, len(m.cfg.CriticalProviders))
	for _, name := range m.cfg.CriticalProviders {
		critical[name] = true
	}

	result := &model.HealthResult{
		Status:    model.HealthHealthy,
		Timestamp: time.Now(),
		Uptime:    time.Since(m.startedAt),
		Version:   m.cfg.Version,
		Providers: make([]model.ProviderHealth, 0, len(m.order)),
	}

	degraded := false
	unhealthyCritical := false
	for _, name := range m.order {
		health, ok := m.statuses[name]
		if !ok {
			continue
		}
		result.Providers = append(result.Providers, *health)
		result.Summary.Total++

		switch health.Status {
		case model.HealthHealthy:
			result.Summary.Healthy++
		case model.HealthDegraded:
			result.Summary.Degraded++
			degraded = true
		case model.HealthUnhealthy:
			result.Summary.Unhealthy++
			if critical[name] {
				unhealthyCritical = true
			} else {
				degraded = true
			}
		}
	}

	if unhealthyCritical {
		result.Status = model.HealthUnhealthy
	} else if degraded {
		result.Status = model.HealthDegraded
	}

	return result
}

// HTTPStatusCode maps the overall status to the readiness-probe contract:
// healthy and degraded serve 200, unhealthy serves 503.
func (m *HealthMonitor) HTTPStatusCode() int {
	if m.HealthResult().Status == model.HealthUnhealthy {
		return 503
	}
	return 200
}
