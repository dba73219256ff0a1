// Package biz contains the provider resilience and routing core: circuit
// breakers, health monitoring, idempotent request caching and provider
// scoring. This layer holds the state machines and policies; wire-level
// provider details live in the data layer.
package biz

import (
	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewCircuitBreakerRegistry,
	NewHealthMonitor,
	NewIdempotencyStore,
	NewTransactionIdCache,
	NewProviderSelector,
	NewPaymentRouter,
	NewWebhookUsecase,
	NewLogSink,
)
