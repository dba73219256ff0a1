package biz

import (
	"math/rand"
	"sync"
	"time"

	"PayLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// BreakerConfig holds per-provider circuit breaker settings.
type BreakerConfig struct {
	// FailureThreshold is the number of failures in the closed state that
	// trips the breaker open.
	FailureThreshold int
	// ResetTimeout is how long an open breaker waits before admitting a
	// probe call (transition to half-open).
	ResetTimeout time.Duration
	// SuccessThreshold is the number of consecutive successes in half-open
	// required to close the breaker.
	SuccessThreshold int
	// HalfOpenAdmitFraction is the probability that a call is admitted
	// while half-open, drawn independently per call.
	HalfOpenAdmitFraction float64
}

// DefaultBreakerConfig provides balanced settings for payment providers.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:      5,
		ResetTimeout:          30 * time.Second,
		SuccessThreshold:      2,
		HalfOpenAdmitFraction: 0.5,
	}
}

// withDefaults fills zero-valued fields from DefaultBreakerConfig.
func (c BreakerConfig) withDefaults() BreakerConfig {
	d := DefaultBreakerConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = d.ResetTimeout
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = d.SuccessThreshold
	}
	if c.HalfOpenAdmitFraction <= 0 || c.HalfOpenAdmitFraction > 1 {
		c.HalfOpenAdmitFraction = d.HalfOpenAdmitFraction
	}
	return c
}

// BreakerOption customizes a CircuitBreaker, mainly for deterministic tests.
type BreakerOption func(*CircuitBreaker)

// WithClock injects the time source.
func WithClock(now func() time.Time) BreakerOption {
	return func(cb *CircuitBreaker) { cb.now = now }
}

// WithAdmitFunc injects the random source deciding half-open admission.
// The function must return values in [0, 1).
func WithAdmitFunc(admit func() float64) BreakerOption {
	return func(cb *CircuitBreaker) { cb.admit = admit }
}

// CircuitBreaker is a per-provider fault-isolation state machine. It lives
// for the process lifetime and is never persisted.
//
// Closed is the initial state. FailureThreshold failures trip it open; after
// ResetTimeout the next CanExecute moves it to half-open, where calls are
// admitted probabilistically. SuccessThreshold consecutive successes close
// it again; any half-open failure reopens it immediately.
type CircuitBreaker struct {
	provider string
	cfg      BreakerConfig

	mu                   sync.Mutex
	state                model.BreakerState
	failures             int
	successes            int
	consecutiveSuccesses int
	lastFailureTime      time.Time
	stateChangedAt       time.Time

	now    func() time.Time
	admit  func() float64
	sinks  []EventSink
	logger *log.Helper
}

// NewCircuitBreaker creates a closed breaker for the named provider.
func NewCircuitBreaker(provider string, cfg BreakerConfig, logger log.Logger, sinks []EventSink, opts ...BreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		provider:       provider,
		cfg:            cfg.withDefaults(),
		state:          model.BreakerClosed,
		stateChangedAt: time.Now(),
		now:            time.Now,
		admit:          rand.Float64,
		sinks:          sinks,
		logger:         log.NewHelper(logger),
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// CanExecute reports whether a call to the provider should be attempted.
// Open breakers fail fast until ResetTimeout has elapsed since the last
// failure, then transition to half-open and admit the call. Half-open
// breakers admit each call independently with HalfOpenAdmitFraction
// probability.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()

	switch cb.state {
	case model.BreakerClosed:
		cb.mu.Unlock()
		return true

	case model.BreakerOpen:
		if cb.now().Sub(cb.lastFailureTime) >= cb.cfg.ResetTimeout {
			events := cb.transitionLocked(model.BreakerHalfOpen, nil)
			cb.mu.Unlock()
			cb.emit(events)
			return true
		}
		cb.mu.Unlock()
		return false

	case model.BreakerHalfOpen:
		admitted := cb.admit() < cb.cfg.HalfOpenAdmitFraction
		cb.mu.Unlock()
		return admitted

	default:
		cb.mu.Unlock()
		return false
	}
}

// RecordSuccess records a successful provider call. While half-open,
// SuccessThreshold consecutive successes close the breaker and reset the
// failure counters. In the closed state only the lifetime success counter
// moves; failures are deliberately not reset.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	cb.successes++

	var events []model.Event
	if cb.state == model.BreakerHalfOpen {
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.cfg.SuccessThreshold {
			events = cb.transitionLocked(model.BreakerClosed, nil)
		}
	}
	cb.mu.Unlock()
	cb.emit(events)
}

// RecordFailure records a failed provider call. A half-open failure reopens
// the breaker immediately; closed-state failures trip it once the threshold
// is reached.
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	cb.lastFailureTime = cb.now()

	details := map[string]any{}
	if err != nil {
		details["error"] = err.Error()
	}

	var events []model.Event
	switch cb.state {
	case model.BreakerHalfOpen:
		events = cb.transitionLocked(model.BreakerOpen, nil)
		events = append(events, model.Event{
			Type:     model.EventFailure,
			Provider: cb.provider,
			Details:  details,
		})

	case model.BreakerClosed:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			events = cb.transitionLocked(model.BreakerOpen, nil)
			events = append(events, model.Event{
				Type:     model.EventTrip,
				Provider: cb.provider,
				Details:  details,
			})
		}
	}
	cb.mu.Unlock()
	cb.emit(events)
}

// Trip forces the breaker open.
func (cb *CircuitBreaker) Trip() {
	cb.mu.Lock()
	cb.lastFailureTime = cb.now()
	events := cb.transitionLocked(model.BreakerOpen, nil)
	events = append(events, model.Event{Type: model.EventManualTrip, Provider: cb.provider})
	cb.mu.Unlock()
	cb.emit(events)
}

// Reset forces the breaker closed and clears its counters, even when the
// breaker is already closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	events := cb.transitionLocked(model.BreakerClosed, nil)
	cb.failures = 0
	cb.successes = 0
	cb.consecutiveSuccesses = 0
	events = append(events, model.Event{Type: model.EventManualReset, Provider: cb.provider})
	cb.mu.Unlock()
	cb.emit(events)
}

// Status returns a point-in-time snapshot. NextRetryAt is only meaningful
// while the breaker is open.
func (cb *CircuitBreaker) Status() model.BreakerStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	st := model.BreakerStatus{
		Provider:             cb.provider,
		State:                cb.state,
		Failures:             cb.failures,
		Successes:            cb.successes,
		ConsecutiveSuccesses: cb.consecutiveSuccesses,
		LastFailureTime:      cb.lastFailureTime,
		StateChangedAt:       cb.stateChangedAt,
	}
	if cb.state == model.BreakerOpen {
		st.NextRetryAt = cb.lastFailureTime.Add(cb.cfg.ResetTimeout)
	}
	return st
}

// State returns the current state.
func (cb *CircuitBreaker) State() model.BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// transitionLocked moves the breaker to a new state, resetting counters on
// close. The caller must hold cb.mu; returned events are emitted after the
// lock is released so sinks cannot deadlock the breaker.
func (cb *CircuitBreaker) transitionLocked(to model.BreakerState, details map[string]any) []model.Event {
	if cb.state == to {
		return nil
	}

	from := cb.state
	cb.state = to
	now := cb.now()
	cb.stateChangedAt = now

	if to == model.BreakerClosed {
		cb.failures = 0
		cb.consecutiveSuccesses = 0
	}
	if to == model.BreakerHalfOpen {
		cb.consecutiveSuccesses = 0
	}

	return []model.Event{{
		Type:      model.EventStateChange,
		Provider:  cb.provider,
		From:      from,
		To:        to,
		Timestamp: now,
		Details:   details,
	}}
}

func (cb *CircuitBreaker) emit(events []model.Event) {
	for _, ev := range events {
		if ev.Type == model.EventStateChange {
			cb.logger.Infow(
				"msg", "circuit breaker state changed",
				"provider", cb.provider,
				"from", string(ev.From),
				"to", string(ev.To),
			)
		}
		publish(cb.sinks, ev)
	}
}
