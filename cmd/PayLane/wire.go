//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"PayLane/internal/biz"
	"PayLane/internal/conf"
	"PayLane/internal/data"
	"PayLane/internal/server"
	"PayLane/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Bootstrap, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(
		newConfServer,
		newConfData,
		newConfRouting,
		newConfAuth,
		newServiceVersion,
		newEventSinks,
		newTransactionRegistry,
		StartIdempotencySweepCron,
		data.ProviderSet,
		biz.ProviderSet,
		service.ProviderSet,
		server.ProviderSet,
		wire.Bind(new(biz.HealthPublisher), new(*data.HealthSnapshotPublisher)),
		newApp,
	))
}
