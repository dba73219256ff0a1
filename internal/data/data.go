// Package data provides the data access layer. It owns the Redis and audit
// database connections and the provider-facing HTTP gateway.
package data

import "github.com/google/wire"

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewRedisClient,
	NewCacheClient,
	NewMySQLClient,
	NewRedisTxnRegistry,
	NewAuditLogger,
	NewHealthSnapshotPublisher,
	NewProviderGateway,
)
