package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PayLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// ProviderAdapter is the capability collaborator for one payment network.
// The resilience core requires nothing beyond a name and a success/failure
// outcome per call; the wire-level details live behind this interface.
type ProviderAdapter interface {
	Name() string
	Pay(ctx context.Context, req *model.PaymentRequest) (*model.PaymentResult, error)
}

// PaymentRouter ties the resilience components into the routing flow: check
// the idempotency store, rank providers, skip circuit-open ones, invoke the
// chosen adapter, record the outcome, cache the result.
type PaymentRouter struct {
	selector *ProviderSelector
	breakers *CircuitBreakerRegistry
	monitor  *HealthMonitor
	idemp    *IdempotencyStore

	mu       sync.RWMutex
	adapters map[string]ProviderAdapter

	logger *log.Helper
	sinks  []EventSink
}

// NewPaymentRouter creates a router over the resilience components.
func NewPaymentRouter(
	selector *ProviderSelector,
	breakers *CircuitBreakerRegistry,
	monitor *HealthMonitor,
	idemp *IdempotencyStore,
	logger log.Logger,
	sinks []EventSink,
) *PaymentRouter {
	return &PaymentRouter{
		selector: selector,
		breakers: breakers,
		monitor:  monitor,
		idemp:    idemp,
		adapters: make(map[string]ProviderAdapter),
		logger:   log.NewHelper(logger),
		sinks:    sinks,
	}
}

// RegisterAdapter makes a provider adapter available for routing.
func (r *PaymentRouter) RegisterAdapter(adapter ProviderAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Name()] = adapter
}

func (r *PaymentRouter) adapter(name string) (ProviderAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// SubmitPayment routes one logical payment. Retried submissions with the
// same identity replay the cached response instead of paying twice.
// De-duplication is best-effort, not transactional (two concurrent
// first-time submissions can both execute).
func (r *PaymentRouter) SubmitPayment(ctx context.Context, req *model.PaymentRequest) (*model.PaymentResult, error) {
	key := r.idemp.GenerateKey(KeyParams{
		Operation: req.Operation,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Recipient: req.Recipient,
		Customer:  req.Customer,
		Metadata:  req.Metadata,
	})

	if cached := r.idemp.Check(key); cached.IsDuplicate {
		r.logger.Infow("msg", "replaying cached response for duplicate request", "key", key)
		return resultFromResponse(cached.Response), nil
	}

	ranked, err := r.selector.CompareProviders(SelectionRequest{
		Amount:             req.Amount,
		Currency:           req.Currency,
		DestinationCountry: req.DestinationCountry,
		Criteria:           model.SelectionCriteria{Prioritize: "balanced"},
	})
	if err != nil {
		return nil, err
	}

	var lastErr error
	attempted := false
	for _, score := range ranked {
		if !r.breakers.CanExecute(score.Provider) {
			continue
		}
		adapter, ok := r.adapter(score.Provider)
		if !ok {
			continue
		}
		attempted = true

		result, err := adapter.Pay(ctx, req)
		if err != nil {
			r.breakers.RecordFailure(score.Provider, err)
			if r.monitor != nil {
				r.monitor.ObserveOutcome(score.Provider, false, err)
			}
			r.logger.Warnw(
				"msg", "provider payment failed, trying next",
				"provider", score.Provider,
				"error", err,
			)
			lastErr = err
			continue
		}

		r.breakers.RecordSuccess(score.Provider)
		if r.monitor != nil {
			r.monitor.ObserveOutcome(score.Provider, true, nil)
		}

		result.Provider = score.Provider
		if result.Timestamp.IsZero() {
			result.Timestamp = time.Now()
		}

		r.idemp.Store(key,
			IdempotencyRequest{
				Method: req.Operation,
				Params: map[string]any{
					"amount":      req.Amount,
					"currency":    req.Currency,
					"destination": req.DestinationCountry,
				},
				Timestamp: time.Now(),
			},
			IdempotencyResponse{
				Status: result.Status,
				Data: map[string]any{
					"provider":        result.Provider,
					"provider_txn_id": result.ProviderTxnID,
				},
				Timestamp: result.Timestamp,
			},
		)

		publish(r.sinks, model.Event{
			Type:     model.EventRouted,
			Provider: score.Provider,
			Key:      key,
			Details:  map[string]any{"score": score.Score, "status": string(result.Status)},
		})

		return result, nil
	}

	if !attempted {
		return nil, ErrNoProvidersAvailable
	}
	return nil, fmt.Errorf("all candidate providers failed: %w", lastErr)
}

// IdempotencyKey exposes key derivation for callers that need to correlate
// webhooks back to a submission.
func (r *PaymentRouter) IdempotencyKey(req *model.PaymentRequest) string {
	return r.idemp.GenerateKey(KeyParams{
		Operation: req.Operation,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Recipient: req.Recipient,
		Customer:  req.Customer,
		Metadata:  req.Metadata,
	})
}

func resultFromResponse(resp *IdempotencyResponse) *model.PaymentResult {
	result := &model.PaymentResult{
		Status:    resp.Status,
		Timestamp: resp.Timestamp,
	}
	if resp.Data != nil {
		if p, ok := resp.Data["provider"].(string); ok {
			result.Provider = p
		}
		if id, ok := resp.Data["provider_txn_id"].(string); ok {
			result.ProviderTxnID = id
		}
		result.Data = resp.Data
	}
	return result
}
