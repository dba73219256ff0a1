package biz

import (
	"errors"
	"sync"

	"PayLane/internal/conf"
	"PayLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// ErrBreakerNotFound is returned by manual controls for unknown providers.
var ErrBreakerNotFound = errors.New("circuit breaker not found for provider")

// CircuitBreakerRegistry lazily creates and owns one CircuitBreaker per
// provider name. Providers that never register are default-allowed so
// routing keeps working for providers that opt out of circuit protection.
type CircuitBreakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	configs  map[string]BreakerConfig
	defaults BreakerConfig

	logger log.Logger
	sinks  []EventSink
	opts   []BreakerOption
}

// NewCircuitBreakerRegistry creates a registry with defaults taken from the
// routing configuration.
func NewCircuitBreakerRegistry(c *conf.Routing, logger log.Logger, sinks []EventSink, opts ...BreakerOption) *CircuitBreakerRegistry {
	defaults := DefaultBreakerConfig()
	if c != nil && c.Breaker != nil {
		defaults = BreakerConfig{
			FailureThreshold:      c.Breaker.FailureThreshold,
			ResetTimeout:          c.Breaker.ResetTimeout,
			SuccessThreshold:      c.Breaker.SuccessThreshold,
			HalfOpenAdmitFraction: c.Breaker.HalfOpenAdmitFraction,
		}.withDefaults()
	}

	return &CircuitBreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
		configs:  make(map[string]BreakerConfig),
		defaults: defaults,
		logger:   logger,
		sinks:    sinks,
		opts:     opts,
	}
}

// Register returns the provider's breaker, creating it on first call. A nil
// config reuses the config remembered from an earlier registration, falling
// back to the registry defaults.
func (r *CircuitBreakerRegistry) Register(provider string, cfg *BreakerConfig) *CircuitBreaker {
	r.mu.RLock()
	cb, exists := r.breakers[provider]
	r.mu.RUnlock()

	if exists {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if cb, exists = r.breakers[provider]; exists {
		return cb
	}

	effective := r.defaults
	if cfg != nil {
		effective = cfg.withDefaults()
	} else if remembered, ok := r.configs[provider]; ok {
		effective = remembered
	}

	cb = NewCircuitBreaker(provider, effective, r.logger, r.sinks, r.opts...)
	r.breakers[provider] = cb
	r.configs[provider] = effective

	return cb
}

// Get returns the breaker for the provider, or nil when never registered.
func (r *CircuitBreakerRegistry) Get(provider string) *CircuitBreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.breakers[provider]
}

// CanExecute delegates to the named breaker. Unmonitored providers
// default-allow.
func (r *CircuitBreakerRegistry) CanExecute(provider string) bool {
	cb := r.Get(provider)
	if cb == nil {
		return true
	}
	return cb.CanExecute()
}

// RecordSuccess delegates to the named breaker; no-op for unknown providers.
func (r *CircuitBreakerRegistry) RecordSuccess(provider string) {
	if cb := r.Get(provider); cb != nil {
		cb.RecordSuccess()
	}
}

// RecordFailure delegates to the named breaker; no-op for unknown providers.
func (r *CircuitBreakerRegistry) RecordFailure(provider string, err error) {
	if cb := r.Get(provider); cb != nil {
		cb.RecordFailure(err)
	}
}

// AllStatuses returns snapshots of every registered breaker.
func (r *CircuitBreakerRegistry) AllStatuses() map[string]model.BreakerStatus {
	r.mu.RLock()
	breakers := make(map[string]*CircuitBreaker, len(r.breakers))
	for name, cb := range r.breakers {
		breakers[name] = cb
	}
	r.mu.RUnlock()

	statuses := make(map[string]model.BreakerStatus, len(breakers))
	for name, cb := range breakers {
		statuses[name] = cb.Status()
	}
	return statuses
}

// Reset forces the named breaker closed.
func (r *CircuitBreakerRegistry) Reset(provider string) error {
	cb := r.Get(provider)
	if cb == nil {
		return ErrBreakerNotFound
	}
	cb.Reset()
	return nil
}

// Trip forces the named breaker open.
func (r *CircuitBreakerRegistry) Trip(provider string) error {
	cb := r.Get(provider)
	if cb == nil {
		return ErrBreakerNotFound
	}
	cb.Trip()
	return nil
}

// Unregister removes the breaker. The provider's config stays remembered so
// a later Register with a nil config picks it back up.
func (r *CircuitBreakerRegistry) Unregister(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.breakers, provider)
}
