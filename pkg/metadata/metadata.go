// Package metadata provides structured parsing and validation for payment
// metadata JSON. Payment metadata carries free-form context (references,
// narrations, external ids) supplied by integrating systems.
package metadata

import (
	"encoding/json"
	"fmt"
)

// PaymentMetadata defines the standard structure for payment metadata JSON.
type PaymentMetadata struct {
	Reference  string   `json:"reference,omitempty"`   // client-side payment reference
	Narration  string   `json:"narration,omitempty"`   // statement narration shown to the recipient
	ExternalID string   `json:"external_id,omitempty"` // id of the payment in the integrating system
	Channel    string   `json:"channel,omitempty"`     // originating channel (api, dashboard, batch)
	Tags       []string `json:"tags,omitempty"`        // tags for filtering and reporting
}

// Parse parses a JSON string into PaymentMetadata. An empty string yields
// empty metadata.
func Parse(jsonStr string) (*PaymentMetadata, error) {
	if jsonStr == "" {
		return &PaymentMetadata{}, nil
	}

	var meta PaymentMetadata
	if err := json.Unmarshal([]byte(jsonStr), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata JSON: %w", err)
	}

	return &meta, nil
}

// String serializes PaymentMetadata to a JSON string, empty when all fields
// are zero.
func (m *PaymentMetadata) String() string {
	if m.IsEmpty() {
		return ""
	}

	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}

	return string(data)
}

// IsEmpty checks whether the metadata has any non-zero values.
func (m *PaymentMetadata) IsEmpty() bool {
	return m.Reference == "" &&
		m.Narration == "" &&
		m.ExternalID == "" &&
		m.Channel == "" &&
		len(m.Tags) == 0
}

// identityKeys are the metadata fields that participate in idempotency key
// derivation. Everything else (channel, tags) is presentation-only and must
// not change the identity of a logical payment.
var identityKeys = []string{"reference", "narration", "external_id"}

// NarrowSlice extracts the identity-relevant subset of a raw metadata map.
// Returns nil when none of the identity keys are present.
func NarrowSlice(raw map[string]string) map[string]string {
	if len(raw) == 0 {
		return nil
	}

	var slice map[string]string
	for _, key := range identityKeys {
		if v, ok := raw[key]; ok && v != "" {
			if slice == nil {
				slice = make(map[string]string, len(identityKeys))
			}
			slice[key] = v
		}
	}
	return slice
}
