package service

import (
	"context"
	"errors"
	"fmt"

	"PayLane/internal/biz"
	"PayLane/internal/conf"
	"PayLane/internal/data"
	"PayLane/internal/model"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// PaymentService handles payment submission, provider comparison, webhook
// ingestion and the breaker admin surface.
type PaymentService struct {
	router   *biz.PaymentRouter
	selector *biz.ProviderSelector
	breakers *biz.CircuitBreakerRegistry
	monitor  *biz.HealthMonitor
	idemp    *biz.IdempotencyStore
	webhooks *biz.WebhookUsecase
	logger   *log.Helper
}

// NewPaymentService creates the service and registers every configured
// provider with the selector, the breaker registry, the health monitor and
// the router's adapter table.
func NewPaymentService(
	c *conf.Bootstrap,
	router *biz.PaymentRouter,
	selector *biz.ProviderSelector,
	breakers *biz.CircuitBreakerRegistry,
	monitor *biz.HealthMonitor,
	idemp *biz.IdempotencyStore,
	webhooks *biz.WebhookUsecase,
	gateway *data.ProviderGateway,
	logger log.Logger,
) *PaymentService {
	helper := log.NewHelper(logger)

	for _, p := range c.Routing.Providers {
		selector.RegisterProvider(&model.ProviderInfo{
			Name:        p.Name,
			Countries:   p.Countries,
			Currencies:  p.Currencies,
			FeePercent:  p.FeePercent,
			Speed:       model.SpeedClass(p.Speed),
			Reliability: p.Reliability,
		})
		breakers.Register(p.Name, nil)

		if probe := gateway.Probe(p.Name); probe != nil {
			monitor.RegisterProvider(p.Name, probe)
		}
		if adapter := gateway.Adapter(p.Name); adapter != nil {
			router.RegisterAdapter(adapter)
		}

		helper.Infow("msg", "provider registered",
			"provider", p.Name,
			"countries", len(p.Countries),
			"currencies", len(p.Currencies),
			"critical", p.Critical)
	}

	return &PaymentService{
		router:   router,
		selector: selector,
		breakers: breakers,
		monitor:  monitor,
		idemp:    idemp,
		webhooks: webhooks,
		logger:   helper,
	}
}

// RegisterRoutes mounts the payment routes on the HTTP server.
func (s *PaymentService) RegisterRoutes(srv *khttp.Server) {
	r := srv.Route("/")
	r.POST("/v1/payments", s.handleSubmitPayment)
	r.POST("/v1/payments/compare", s.handleCompareProviders)
	r.POST("/v1/webhooks/{provider}", s.handleWebhook)
	r.GET("/v1/breakers", s.handleListBreakers)
	r.POST("/v1/breakers/{provider}/trip", s.handleTripBreaker)
	r.POST("/v1/breakers/{provider}/reset", s.handleResetBreaker)
	r.GET("/v1/idempotency/stats", s.handleIdempotencyStats)
}

type submitPaymentRequest struct {
	Operation          string            `json:"operation"`
	Amount             float64           `json:"amount"`
	Currency           string            `json:"currency"`
	DestinationCountry string            `json:"destination_country"`
	Recipient          string            `json:"recipient"`
	Customer           string            `json:"customer"`
	Metadata           map[string]string `json:"metadata"`
}

func (r *submitPaymentRequest) validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %v", r.Amount)
	}
	if r.Currency == "" {
		return errors.New("currency is required")
	}
	if r.DestinationCountry == "" {
		return errors.New("destination_country is required")
	}
	return nil
}

func (r *submitPaymentRequest) toModel() *model.PaymentRequest {
	op := r.Operation
	if op == "" {
		op = "payment"
	}
	return &model.PaymentRequest{
		Operation:          op,
		Amount:             r.Amount,
		Currency:           r.Currency,
		DestinationCountry: r.DestinationCountry,
		Recipient:          r.Recipient,
		Customer:           r.Customer,
		Metadata:           r.Metadata,
	}
}

func (s *PaymentService) handleSubmitPayment(ctx khttp.Context) error {
	var in submitPaymentRequest
	if err := ctx.Bind(&in); err != nil {
		return kerrors.BadRequest("INVALID_BODY", err.Error())
	}
	if err := in.validate(); err != nil {
		return kerrors.BadRequest("INVALID_PAYMENT", err.Error())
	}

	req := in.toModel()
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		return s.router.SubmitPayment(c, req)
	})
	out, err := h(ctx, req)
	if err != nil {
		if errors.Is(err, biz.ErrNoProvidersAvailable) {
			return kerrors.ServiceUnavailable("NO_PROVIDERS_AVAILABLE", err.Error())
		}
		s.logger.Errorw("msg", "payment submission failed", "error", err)
		return kerrors.InternalServer("PAYMENT_FAILED", err.Error())
	}
	return ctx.Result(200, out)
}

type compareProvidersRequest struct {
	Amount             float64 `json:"amount"`
	Currency           string  `json:"currency"`
	DestinationCountry string  `json:"destination_country"`
	Prioritize         string  `json:"prioritize"`
}

type compareProvidersResponse struct {
	Best      *model.ProviderScore  `json:"best,omitempty"`
	Providers []model.ProviderScore `json:"providers"`
}

func (s *PaymentService) handleCompareProviders(ctx khttp.Context) error {
	var in compareProvidersRequest
	if err := ctx.Bind(&in); err != nil {
		return kerrors.BadRequest("INVALID_BODY", err.Error())
	}

	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		best, ranked, err := s.selector.SelectBestProvider(biz.SelectionRequest{
			Amount:             in.Amount,
			Currency:           in.Currency,
			DestinationCountry: in.DestinationCountry,
			Criteria:           model.SelectionCriteria{Prioritize: in.Prioritize},
		})
		if err != nil {
			return nil, err
		}
		return &compareProvidersResponse{Best: best, Providers: ranked}, nil
	})
	out, err := h(ctx, &in)
	if err != nil {
		if errors.Is(err, biz.ErrNoProvidersAvailable) {
			return kerrors.ServiceUnavailable("NO_PROVIDERS_AVAILABLE", err.Error())
		}
		return err
	}
	return ctx.Result(200, out)
}

type webhookRequest struct {
	TransactionID  string `json:"transaction_id"`
	Status         string `json:"status"`
	IdempotencyKey string `json:"idempotency_key"`
}

type webhookResponse struct {
	Processed bool   `json:"processed"`
	Duplicate bool   `json:"duplicate"`
	Message   string `json:"message,omitempty"`
}

func (s *PaymentService) handleWebhook(ctx khttp.Context) error {
	provider := ctx.Vars().Get("provider")

	var in webhookRequest
	if err := ctx.Bind(&in); err != nil {
		return kerrors.BadRequest("INVALID_BODY", err.Error())
	}
	if in.TransactionID == "" {
		return kerrors.BadRequest("INVALID_WEBHOOK", "transaction_id is required")
	}

	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		processed, err := s.webhooks.HandleProviderWebhook(c, provider, in.TransactionID, model.PaymentStatus(in.Status), in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		resp := &webhookResponse{Processed: processed, Duplicate: !processed}
		if !processed {
			resp.Message = "duplicate delivery ignored"
		}
		return resp, nil
	})
	out, err := h(ctx, &in)
	if err != nil {
		s.logger.Warnw("msg", "webhook processing failed", "provider", provider, "error", err)
		return kerrors.InternalServer("WEBHOOK_FAILED", err.Error())
	}
	return ctx.Result(200, out)
}

func (s *PaymentService) handleListBreakers(ctx khttp.Context) error {
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		return s.breakers.AllStatuses(), nil
	})
	out, err := h(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.Result(200, out)
}

type breakerActionResponse struct {
	Success  bool                `json:"success"`
	Provider string              `json:"provider"`
	Status   model.BreakerStatus `json:"status"`
}

func (s *PaymentService) handleTripBreaker(ctx khttp.Context) error {
	provider := ctx.Vars().Get("provider")

	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		if err := s.breakers.Trip(provider); err != nil {
			return nil, err
		}
		return &breakerActionResponse{
			Success:  true,
			Provider: provider,
			Status:   s.breakers.Get(provider).Status(),
		}, nil
	})
	out, err := h(ctx, nil)
	if err != nil {
		if errors.Is(err, biz.ErrBreakerNotFound) {
			return kerrors.NotFound("BREAKER_NOT_FOUND", err.Error())
		}
		return err
	}
	return ctx.Result(200, out)
}

func (s *PaymentService) handleResetBreaker(ctx khttp.Context) error {
	provider := ctx.Vars().Get("provider")

	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		if err := s.breakers.Reset(provider); err != nil {
			return nil, err
		}
		return &breakerActionResponse{
			Success:  true,
			Provider: provider,
			Status:   s.breakers.Get(provider).Status(),
		}, nil
	})
	out, err := h(ctx, nil)
	if err != nil {
		if errors.Is(err, biz.ErrBreakerNotFound) {
			return kerrors.NotFound("BREAKER_NOT_FOUND", err.Error())
		}
		return err
	}
	return ctx.Result(200, out)
}

func (s *PaymentService) handleIdempotencyStats(ctx khttp.Context) error {
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		return s.idemp.Stats(), nil
	})
	out, err := h(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.Result(200, out)
}
