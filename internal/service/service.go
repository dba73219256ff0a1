// Package service exposes the routing layer over HTTP.
package service

import "github.com/google/wire"

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewPaymentService, NewHealthService)
