package service

import (
	"PayLane/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// HealthService exposes the aggregated provider health as a readiness probe.
type HealthService struct {
	monitor *biz.HealthMonitor
	logger  *log.Helper
}

// NewHealthService creates a new HealthService.
func NewHealthService(monitor *biz.HealthMonitor, logger log.Logger) *HealthService {
	return &HealthService{
		monitor: monitor,
		logger:  log.NewHelper(logger),
	}
}

// RegisterRoutes mounts the health routes on the HTTP server.
func (s *HealthService) RegisterRoutes(srv *khttp.Server) {
	r := srv.Route("/")
	r.GET("/healthz", s.handleHealthz)
	r.GET("/v1/health/providers", s.handleProviderHealth)
}

// handleHealthz returns the overall readiness of the routing layer.
// 200 when every critical provider is reachable, 503 otherwise.
func (s *HealthService) handleHealthz(ctx khttp.Context) error {
	result := s.monitor.HealthResult()
	return ctx.JSON(s.monitor.HTTPStatusCode(), result)
}

// handleProviderHealth returns the per-provider health detail.
func (s *HealthService) handleProviderHealth(ctx khttp.Context) error {
	result := s.monitor.HealthResult()
	return ctx.Result(200, result.Providers)
}
