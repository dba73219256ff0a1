// Package main is the entry point of the PayLane routing service.
// It initializes the Kratos application with the HTTP server and the
// background health and sweep loops.
package main

import (
	"context"
	"flag"
	"os"

	"PayLane/internal/biz"
	"PayLane/internal/conf"
	"PayLane/internal/data"
	zapLogger "PayLane/pkg/log"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/robfig/cron/v3"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "PayLane"
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func newApp(logger log.Logger, hs *http.Server, monitor *biz.HealthMonitor, sweeper *cron.Cron) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			hs,
		),
		kratos.BeforeStart(func(context.Context) error {
			monitor.Start()
			return nil
		}),
		kratos.AfterStop(func(context.Context) error {
			monitor.Stop()
			if sweeper != nil {
				sweeper.Stop()
			}
			return nil
		}),
	)
}

// Config field extractors for wire.

func newConfServer(bc *conf.Bootstrap) *conf.Server { return bc.Server }

func newConfData(bc *conf.Bootstrap) *conf.Data { return bc.Data }

func newConfRouting(bc *conf.Bootstrap) *conf.Routing { return bc.Routing }

func newConfAuth(bc *conf.Bootstrap) *conf.Auth { return bc.Auth }

func newServiceVersion() biz.ServiceVersion { return biz.ServiceVersion(Version) }

// newEventSinks assembles the local event fan-out: structured logs always,
// the async audit writer when a database is configured.
func newEventSinks(logSink *biz.LogSink, audit *data.AuditLogger) []biz.EventSink {
	return []biz.EventSink{logSink, audit}
}

// newTransactionRegistry picks the transaction dedup backend. Redis shares
// seen ids across instances; memory keeps them process-local.
func newTransactionRegistry(
	bc *conf.Bootstrap,
	cache *biz.TransactionIdCache,
	registry *data.RedisTxnRegistry,
	logger log.Logger,
) biz.TransactionRegistry {
	helper := log.NewHelper(logger)

	if bc.Routing.TxnCache != nil && bc.Routing.TxnCache.Backend == "redis" {
		helper.Info("transaction dedup backend: redis")
		return registry
	}
	helper.Info("transaction dedup backend: memory")
	return cache
}

func main() {
	flag.Parse()

	// Load configuration using Viper with environment variable support
	bc, err := conf.NewBootstrap(flagconf)
	if err != nil {
		// Use fallback logger before Zap is initialized
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize Zap logger from configuration
	zapLog, err := zapLogger.NewZapLogger(bc.Log)
	if err != nil {
		log.Fatalf("failed to initialize zap logger: %v", err)
	}
	defer zapLog.Sync()

	// Create Kratos adapter for Zap logger
	logger := zapLogger.NewKratosAdapter(zapLog)

	logger = log.With(logger,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)

	log.NewHelper(logger).Infow(
		"msg", "PayLane routing service starting",
		"log.level", bc.Log.Level,
		"log.format", bc.Log.Format,
		"log.env", bc.Log.Env,
		"providers", len(bc.Routing.Providers),
	)

	app, cleanup, err := wireApp(bc, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
