package model

import "time"

// BreakerState represents a circuit breaker state.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// HealthStatus represents the health of a single provider or the whole system.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthUnknown   HealthStatus = "unknown"
)

// EventType identifies an event emitted by a resilience component.
type EventType string

const (
	// Circuit breaker events
	EventStateChange EventType = "state_change"
	EventTrip        EventType = "trip"
	EventFailure     EventType = "failure"
	EventManualTrip  EventType = "manual_trip"
	EventManualReset EventType = "manual_reset"

	// Health monitor events
	EventProviderHealthy   EventType = "provider_healthy"
	EventProviderDegraded  EventType = "provider_degraded"
	EventProviderUnhealthy EventType = "provider_unhealthy"
	EventCheckComplete     EventType = "check_complete"
	EventMonitorStarted    EventType = "started"
	EventMonitorStopped    EventType = "stopped"

	// Idempotency store events
	EventStored  EventType = "stored"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
	EventExpired EventType = "expired"
	EventEvicted EventType = "evicted"
	EventError   EventType = "error"
	EventCleared EventType = "cleared"

	// Routing events
	EventRouted EventType = "routed"
)

// Event is the unit of local fan-out to event sinks (log, audit, metrics).
// Delivery is at-least-once within the process.
type Event struct {
	Type      EventType      `json:"type"`
	Provider  string         `json:"provider,omitempty"`
	From      BreakerState   `json:"from,omitempty"`
	To        BreakerState   `json:"to,omitempty"`
	Key       string         `json:"key,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// ProbeResult is what a provider health probe reports back.
type ProbeResult struct {
	Healthy      bool           `json:"healthy"`
	ResponseTime time.Duration  `json:"response_time,omitempty"`
	Error        string         `json:"error,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ProviderHealth is the last observed probe outcome for one provider.
// It is overwritten on every probe cycle.
type ProviderHealth struct {
	Name         string         `json:"name"`
	Status       HealthStatus   `json:"status"`
	LastChecked  time.Time      `json:"last_checked"`
	ResponseTime time.Duration  `json:"response_time"`
	Error        string         `json:"error,omitempty"`
	Breaker      *BreakerStatus `json:"breaker,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// BreakerStatus is a point-in-time snapshot of one circuit breaker.
type BreakerStatus struct {
	Provider             string       `json:"provider"`
	State                BreakerState `json:"state"`
	Failures             int          `json:"failures"`
	Successes            int          `json:"successes"`
	ConsecutiveSuccesses int          `json:"consecutive_successes"`
	LastFailureTime      time.Time    `json:"last_failure_time"`
	StateChangedAt       time.Time    `json:"state_changed_at"`
	NextRetryAt          time.Time    `json:"next_retry_at"`
}

// HealthSummary aggregates per-provider statuses.
type HealthSummary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Degraded  int `json:"degraded"`
	Unhealthy int `json:"unhealthy"`
}

// HealthResult is the readiness-endpoint payload.
type HealthResult struct {
	Status    HealthStatus     `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    time.Duration    `json:"uptime"`
	Version   string           `json:"version"`
	Providers []ProviderHealth `json:"providers"`
	Summary   HealthSummary    `json:"summary"`
}
