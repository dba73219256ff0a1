package biz

import (
	"encoding/json"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"PayLane/internal/conf"
	"PayLane/internal/model"
	"PayLane/pkg/metadata"

	"github.com/go-kratos/kratos/v2/log"
)

// IdempotencyRequest is the request snapshot stored alongside a cached
// response.
type IdempotencyRequest struct {
	Method    string         `json:"method"`
	Params    map[string]any `json:"params,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// IdempotencyResponse is the cached outcome of a logical request.
type IdempotencyResponse struct {
	Status    model.PaymentStatus `json:"status"`
	Data      map[string]any      `json:"data,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// IdempotencyEntry associates a key with its request and response snapshots.
type IdempotencyEntry struct {
	Key      string              `json:"key"`
	Request  IdempotencyRequest  `json:"request"`
	Response IdempotencyResponse `json:"response"`
	// ExpiresAt bounds how long the entry can be replayed.
	ExpiresAt time.Time `json:"expires_at"`
}

// CheckResult is the outcome of a duplicate check.
type CheckResult struct {
	IsDuplicate bool
	Response    *IdempotencyResponse
	Entry       *IdempotencyEntry
}

// IdempotencyStats counts live entries by response status.
type IdempotencyStats struct {
	Total    int `json:"total"`
	Success  int `json:"success"`
	Error    int `json:"error"`
	Pending  int `json:"pending"`
	Capacity int `json:"capacity"`
}

// KeyParams is the input contract for idempotency key derivation. Two
// semantically identical requests must collapse to the same key regardless
// of field or metadata ordering.
type KeyParams struct {
	Provider  string
	Operation string
	Amount    float64
	Currency  string
	Recipient string
	Customer  string
	Metadata  map[string]string
}

// IdempotencyStore caches request/response pairs keyed by a deterministic
// idempotency key, bounded by TTL and capacity. De-duplication is
// best-effort: two concurrent requests sharing a key can both miss before
// either stores, so callers must not use this as a mutual-exclusion lock.
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*IdempotencyEntry

	defaultTTL      time.Duration
	maxEntries      int
	maxResponseSize int

	logger *log.Helper
	sinks  []EventSink
}

// NewIdempotencyStore creates a store from the routing configuration.
func NewIdempotencyStore(c *conf.Routing, logger log.Logger, sinks []EventSink) *IdempotencyStore {
	s := &IdempotencyStore{
		entries:         make(map[string]*IdempotencyEntry),
		defaultTTL:      24 * time.Hour,
		maxEntries:      10000,
		maxResponseSize: 64 * 1024,
		logger:          log.NewHelper(logger),
		sinks:           sinks,
	}
	if c != nil && c.Idempotency != nil {
		if c.Idempotency.DefaultTTL > 0 {
			s.defaultTTL = c.Idempotency.DefaultTTL
		}
		if c.Idempotency.MaxEntries > 0 {
			s.maxEntries = c.Idempotency.MaxEntries
		}
		if c.Idempotency.MaxResponseSize > 0 {
			s.maxResponseSize = c.Idempotency.MaxResponseSize
		}
	}
	return s
}

// Check reports whether the key identifies a previously stored request.
// Expired entries are deleted lazily here and reported as not duplicates.
func (s *IdempotencyStore) Check(key string) CheckResult {
	s.mu.Lock()

	entry, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return CheckResult{}
	}

	if !time.Now().Before(entry.ExpiresAt) {
		delete(s.entries, key)
		s.mu.Unlock()
		publish(s.sinks, model.Event{Type: model.EventExpired, Key: key})
		return CheckResult{}
	}

	resp := entry.Response
	snapshot := *entry
	s.mu.Unlock()

	return CheckResult{IsDuplicate: true, Response: &resp, Entry: &snapshot}
}

// Store caches a response under the key with the default TTL.
func (s *IdempotencyStore) Store(key string, req IdempotencyRequest, resp IdempotencyResponse) {
	s.StoreWithTTL(key, req, resp, s.defaultTTL)
}

// StoreWithTTL caches a response under the key. At capacity the single
// oldest entry (by request timestamp) is evicted first. Responses whose
// serialized form exceeds the size limit are not cached at all; only an
// error event is emitted and the caller's own response is unaffected.
func (s *IdempotencyStore) StoreWithTTL(key string, req IdempotencyRequest, resp IdempotencyResponse, ttl time.Duration) {
	serialized, err := json.Marshal(resp)
	if err == nil && len(serialized) > s.maxResponseSize {
		s.logger.Warnw(
			"msg", "response too large to cache",
			"key", key,
			"size", len(serialized),
			"limit", s.maxResponseSize,
		)
		publish(s.sinks, model.Event{
			Type: model.EventError,
			Key:  key,
			Details: map[string]any{
				"reason": "response exceeds max size",
				"size":   len(serialized),
			},
		})
		return
	}

	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}
	if resp.Timestamp.IsZero() {
		resp.Timestamp = time.Now()
	}

	s.mu.Lock()
	var evicted string
	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		evicted = s.evictOldestLocked()
	}

	s.entries[key] = &IdempotencyEntry{
		Key:       key,
		Request:   req,
		Response:  resp,
		ExpiresAt: time.Now().Add(ttl),
	}
	s.mu.Unlock()

	if evicted != "" {
		publish(s.sinks, model.Event{Type: model.EventEvicted, Key: evicted})
	}
	publish(s.sinks, model.Event{Type: model.EventStored, Key: key})
}

// evictOldestLocked removes the entry with the earliest request timestamp.
// Caller must hold s.mu.
func (s *IdempotencyStore) evictOldestLocked() string {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range s.entries {
		if oldestKey == "" || entry.Request.Timestamp.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.Request.Timestamp
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
	}
	return oldestKey
}

// Update mutates a stored entry's response, e.g. flipping pending to
// success once a webhook confirms. Returns false when the key is absent.
func (s *IdempotencyStore) Update(key string, resp IdempotencyResponse) bool {
	if resp.Timestamp.IsZero() {
		resp.Timestamp = time.Now()
	}

	s.mu.Lock()
	entry, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return false
	}
	entry.Response = resp
	s.mu.Unlock()

	publish(s.sinks, model.Event{Type: model.EventUpdated, Key: key})
	return true
}

// Delete removes the entry for the key, reporting whether it existed.
func (s *IdempotencyStore) Delete(key string) bool {
	s.mu.Lock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	s.mu.Unlock()

	if ok {
		publish(s.sinks, model.Event{Type: model.EventDeleted, Key: key})
	}
	return ok
}

// Clear drops every entry.
func (s *IdempotencyStore) Clear() {
	s.mu.Lock()
	n := len(s.entries)
	s.entries = make(map[string]*IdempotencyEntry)
	s.mu.Unlock()

	publish(s.sinks, model.Event{Type: model.EventCleared, Details: map[string]any{"removed": n}})
}

// Sweep deletes expired entries and returns how many were removed. It is
// run by the periodic cron job and before stats are computed.
func (s *IdempotencyStore) Sweep() int {
	now := time.Now()

	s.mu.Lock()
	var expired []string
	for key, entry := range s.entries {
		if !now.Before(entry.ExpiresAt) {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		delete(s.entries, key)
	}
	s.mu.Unlock()

	for _, key := range expired {
		publish(s.sinks, model.Event{Type: model.EventExpired, Key: key})
	}
	return len(expired)
}

// Size returns the current number of entries, expired or not.
func (s *IdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats sweeps expired entries and counts the remainder by response status.
func (s *IdempotencyStore) Stats() IdempotencyStats {
	s.Sweep()

	s.mu.Lock()
	defer s.mu.Unlock()

	stats := IdempotencyStats{Total: len(s.entries), Capacity: s.maxEntries}
	for _, entry := range s.entries {
		switch entry.Response.Status {
		case model.PaymentSuccess:
			stats.Success++
		case model.PaymentError:
			stats.Error++
		case model.PaymentPending:
			stats.Pending++
		}
	}
	return stats
}

// GenerateKey derives a deterministic idempotency key from the request
// parameters. The canonical form serializes with sorted keys and an
// upper-cased currency, so semantically identical requests collapse to the
// same key regardless of field ordering. The hash is a non-cryptographic
// 32-bit FNV-1a, base36-encoded with an idemp_ prefix.
func (s *IdempotencyStore) GenerateKey(params KeyParams) string {
	canonical := map[string]any{
		"provider":  params.Provider,
		"operation": params.Operation,
		"amount":    params.Amount,
		"currency":  strings.ToUpper(params.Currency),
	}
	if params.Recipient != "" {
		canonical["recipient"] = params.Recipient
	}
	if params.Customer != "" {
		canonical["customer"] = params.Customer
	}
	if slice := metadata.NarrowSlice(params.Metadata); slice != nil {
		canonical["metadata"] = slice
	}

	// encoding/json marshals map keys in sorted order, which gives us the
	// canonical serialization for free.
	data, _ := json.Marshal(canonical)

	h := fnv.New32a()
	_, _ = h.Write(data)

	return "idemp_" + strconv.FormatUint(uint64(h.Sum32()), 36)
}
