package biz

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"PayLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// ErrNoProvidersAvailable is returned when selection runs with zero
// registered providers, or routing finds every provider circuit-open.
var ErrNoProvidersAvailable = errors.New("no providers available")

// breakerGate is the narrow slice of the breaker registry the selector
// needs: a yes/no per provider.
type breakerGate interface {
	CanExecute(provider string) bool
}

// SelectionRequest describes the transaction being routed.
type SelectionRequest struct {
	Amount             float64
	Currency           string
	DestinationCountry string
	Criteria           model.SelectionCriteria
}

// Scoring weights per prioritization mode: the chosen dimension gets 0.6,
// the others 0.2 each; balanced favors fees slightly.
var priorityWeights = map[string][3]float64{
	"fees":        {0.6, 0.2, 0.2},
	"speed":       {0.2, 0.6, 0.2},
	"reliability": {0.2, 0.2, 0.6},
	"balanced":    {0.4, 0.3, 0.3},
}

var speedWeights = map[model.SpeedClass]float64{
	model.SpeedInstant:  1.0,
	model.SpeedFast:     0.8,
	model.SpeedStandard: 0.5,
	model.SpeedSlow:     0.2,
}

const (
	defaultReliability = 80.0
	// circuitOpenPenalty pushes circuit-open providers to the bottom of the
	// ranking without excluding them, so a result is always returned.
	circuitOpenPenalty = 1000.0
)

// ProviderSelector is a stateless scoring function ranking candidate
// providers for a transaction. Registration order is preserved so ties keep
// a stable order.
type ProviderSelector struct {
	mu        sync.RWMutex
	providers []*model.ProviderInfo
	index     map[string]int

	breakers breakerGate
	logger   *log.Helper
}

// NewProviderSelector creates a selector gated by the breaker registry.
func NewProviderSelector(registry *CircuitBreakerRegistry, logger log.Logger) *ProviderSelector {
	return &ProviderSelector{
		index:    make(map[string]int),
		breakers: registry,
		logger:   log.NewHelper(logger),
	}
}

// RegisterProvider adds or replaces a provider's static metadata.
func (s *ProviderSelector) RegisterProvider(info *model.ProviderInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[info.Name]; ok {
		s.providers[i] = info
		return
	}
	s.index[info.Name] = len(s.providers)
	s.providers = append(s.providers, info)
}

// UnregisterProvider removes a provider from selection.
func (s *ProviderSelector) UnregisterProvider(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[name]
	if !ok {
		return
	}
	s.providers = append(s.providers[:i], s.providers[i+1:]...)
	delete(s.index, name)
	for j := i; j < len(s.providers); j++ {
		s.index[s.providers[j].Name] = j
	}
}

// Providers returns the registered providers in registration order.
func (s *ProviderSelector) Providers() []*model.ProviderInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.ProviderInfo, len(s.providers))
	copy(out, s.providers)
	return out
}

// SelectBestProvider scores every registered provider and returns the
// top-ranked one plus the full ranked list. A provider that does not support
// the destination is still scored, never excluded, so a result is always
// returned; the only error is zero registered providers.
func (s *ProviderSelector) SelectBestProvider(req SelectionRequest) (*model.ProviderScore, []model.ProviderScore, error) {
	ranked, err := s.rank(req)
	if err != nil {
		return nil, nil, err
	}
	best := ranked[0]
	return &best, ranked, nil
}

// CompareProviders exposes the same ranked list without committing to a
// choice, for comparison UIs.
func (s *ProviderSelector) CompareProviders(req SelectionRequest) ([]model.ProviderScore, error) {
	return s.rank(req)
}

func (s *ProviderSelector) rank(req SelectionRequest) ([]model.ProviderScore, error) {
	s.mu.RLock()
	providers := make([]*model.ProviderInfo, len(s.providers))
	copy(providers, s.providers)
	s.mu.RUnlock()

	if len(providers) == 0 {
		return nil, ErrNoProvidersAvailable
	}

	scores := make([]model.ProviderScore, 0, len(providers))
	for _, p := range providers {
		scores = append(scores, s.score(p, req))
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	return scores, nil
}

func (s *ProviderSelector) score(p *model.ProviderInfo, req SelectionRequest) model.ProviderScore {
	var base float64
	var reasons []string

	if p.SupportsCountry(req.DestinationCountry) {
		base += 20
		reasons = append(reasons, fmt.Sprintf("supports destination %s", req.DestinationCountry))
	} else {
		base -= 50
		reasons = append(reasons, fmt.Sprintf("does not support destination %s", req.DestinationCountry))
	}

	currency := strings.ToUpper(req.Currency)
	if p.SupportsCurrency(currency) {
		base += 15
		reasons = append(reasons, fmt.Sprintf("supports currency %s", currency))
	} else {
		base -= 10
		reasons = append(reasons, fmt.Sprintf("does not support currency %s", currency))
	}

	feeScore := 100 - p.FeePercent
	if feeScore < 0 {
		feeScore = 0
	}

	speedWeight, ok := speedWeights[p.Speed]
	if !ok {
		speedWeight = speedWeights[model.SpeedStandard]
	}
	speedScore := speedWeight * 100

	reliability := p.Reliability
	if reliability <= 0 {
		reliability = defaultReliability
	}

	weights, ok := priorityWeights[req.Criteria.Prioritize]
	if !ok {
		weights = priorityWeights["balanced"]
	}

	total := base + feeScore*weights[0] + speedScore*weights[1] + reliability*weights[2]

	if s.breakers != nil && !s.breakers.CanExecute(p.Name) {
		total -= circuitOpenPenalty
		reasons = append(reasons, "circuit open")
	}

	return model.ProviderScore{
		Provider:    p.Name,
		Score:       total,
		Reasons:     reasons,
		FeeEstimate: req.Amount * p.FeePercent / 100,
		Speed:       p.Speed,
		Reliability: reliability,
	}
}
