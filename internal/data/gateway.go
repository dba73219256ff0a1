package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"PayLane/internal/conf"
	"PayLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// ProviderGateway builds the HTTP adapters and health probes for every
// configured provider. It is the only place that knows providers speak
// HTTP; the biz layer sees adapters and probe functions.
type ProviderGateway struct {
	client    *http.Client
	providers map[string]*conf.Provider
	logger    log.Logger
}

// NewProviderGateway creates a gateway over the configured providers.
func NewProviderGateway(c *conf.Routing, logger log.Logger) *ProviderGateway {
	providers := make(map[string]*conf.Provider)
	if c != nil {
		for _, p := range c.Providers {
			providers[p.Name] = p
		}
	}

	return &ProviderGateway{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		providers: providers,
		logger:    logger,
	}
}

// Adapter returns the payment adapter for a configured provider, or nil.
func (g *ProviderGateway) Adapter(name string) *HTTPProviderAdapter {
	p, ok := g.providers[name]
	if !ok || p.BaseURL == "" {
		return nil
	}
	return &HTTPProviderAdapter{
		name:    p.Name,
		baseURL: p.BaseURL,
		client:  g.client,
		logger:  log.NewHelper(g.logger),
	}
}

// Probe returns a health check function for a configured provider. The
// probe pings {base_url}/health and reports response time.
func (g *ProviderGateway) Probe(name string) func(ctx context.Context) model.ProbeResult {
	p, ok := g.providers[name]
	if !ok || p.BaseURL == "" {
		return nil
	}
	url := p.BaseURL + "/health"
	client := g.client

	return func(ctx context.Context) model.ProbeResult {
		start := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return model.ProbeResult{Healthy: false, Error: err.Error()}
		}

		resp, err := client.Do(req)
		if err != nil {
			return model.ProbeResult{
				Healthy:      false,
				ResponseTime: time.Since(start),
				Error:        err.Error(),
			}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return model.ProbeResult{
				Healthy:      false,
				ResponseTime: time.Since(start),
				Error:        fmt.Sprintf("health endpoint returned %d", resp.StatusCode),
			}
		}

		return model.ProbeResult{
			Healthy:      true,
			ResponseTime: time.Since(start),
		}
	}
}

// HTTPProviderAdapter invokes one provider's payment API over HTTP.
type HTTPProviderAdapter struct {
	name    string
	baseURL string
	client  *http.Client
	logger  *log.Helper
}

// Name returns the provider name.
func (a *HTTPProviderAdapter) Name() string {
	return a.name
}

// paymentResponse is the wire shape providers answer with.
type paymentResponse struct {
	Status        string         `json:"status"`
	TransactionID string         `json:"transaction_id"`
	Data          map[string]any `json:"data,omitempty"`
}

// Pay submits the payment to {base_url}/payments. Non-2xx responses and
// transport errors are returned as errors so the router records a failure.
func (a *HTTPProviderAdapter) Pay(ctx context.Context, req *model.PaymentRequest) (*model.PaymentResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider %s request failed: %w", a.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider %s returned status %d", a.name, resp.StatusCode)
	}

	var pr paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("provider %s returned invalid response: %w", a.name, err)
	}

	status := model.PaymentStatus(pr.Status)
	switch status {
	case model.PaymentSuccess, model.PaymentError, model.PaymentPending:
	default:
		// Providers that answer 2xx without a recognized status are treated
		// as pending until a webhook settles them.
		status = model.PaymentPending
	}

	return &model.PaymentResult{
		Status:        status,
		Provider:      a.name,
		ProviderTxnID: pr.TransactionID,
		Data:          pr.Data,
		Timestamp:     time.Now(),
	}, nil
}
