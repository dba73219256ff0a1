// Package model contains shared domain types for the routing layer.
package model

import "time"

// SpeedClass categorizes how fast a provider typically settles.
type SpeedClass string

const (
	SpeedInstant  SpeedClass = "instant"
	SpeedFast     SpeedClass = "fast"
	SpeedStandard SpeedClass = "standard"
	SpeedSlow     SpeedClass = "slow"
)

// PaymentStatus is the terminal (or pending) state of a payment attempt.
type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "success"
	PaymentError   PaymentStatus = "error"
	PaymentPending PaymentStatus = "pending"
)

// ProviderInfo is the static metadata a payment provider advertises.
// The resilience core needs nothing else from the provider adapters.
type ProviderInfo struct {
	Name        string     `json:"name"`
	Countries   []string   `json:"countries"`
	Currencies  []string   `json:"currencies"`
	FeePercent  float64    `json:"fee_percent"`
	Speed       SpeedClass `json:"speed"`
	Reliability float64    `json:"reliability"`
}

// SupportsCountry reports whether the provider lists the destination country.
func (p *ProviderInfo) SupportsCountry(country string) bool {
	for _, c := range p.Countries {
		if c == country {
			return true
		}
	}
	return false
}

// SupportsCurrency reports whether the provider lists the currency.
func (p *ProviderInfo) SupportsCurrency(currency string) bool {
	for _, c := range p.Currencies {
		if c == currency {
			return true
		}
	}
	return false
}

// PaymentRequest is a logical payment to be routed to some provider.
type PaymentRequest struct {
	Operation          string            `json:"operation"`
	Amount             float64           `json:"amount"`
	Currency           string            `json:"currency"`
	DestinationCountry string            `json:"destination_country"`
	Recipient          string            `json:"recipient,omitempty"`
	Customer           string            `json:"customer,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// PaymentResult is the outcome of one provider invocation.
type PaymentResult struct {
	Status        PaymentStatus  `json:"status"`
	Provider      string         `json:"provider"`
	ProviderTxnID string         `json:"provider_txn_id,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// SelectionCriteria steers provider scoring.
type SelectionCriteria struct {
	Prioritize string `json:"prioritize"` // fees, speed, reliability or balanced
}

// ProviderScore is a per-provider ranking entry, derived fresh per selection.
type ProviderScore struct {
	Provider    string     `json:"provider"`
	Score       float64    `json:"score"`
	Reasons     []string   `json:"reasons"`
	FeeEstimate float64    `json:"fee_estimate"`
	Speed       SpeedClass `json:"speed"`
	Reliability float64    `json:"reliability"`
}
