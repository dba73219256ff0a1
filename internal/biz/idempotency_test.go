package biz

import (
	"strings"
	"testing"
	"time"

	"PayLane/internal/conf"
	"PayLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, idemp *conf.Idempotency, sinks ...EventSink) *IdempotencyStore {
	t.Helper()
	return NewIdempotencyStore(&conf.Routing{Idempotency: idemp}, log.DefaultLogger, sinks)
}

func testResponse(status model.PaymentStatus) IdempotencyResponse {
	return IdempotencyResponse{
		Status:    status,
		Data:      map[string]any{"provider": "mpesa"},
		Timestamp: time.Now(),
	}
}

func TestIdempotencyStore_StoreAndCheck(t *testing.T) {
	s := newTestStore(t, nil)

	assert.False(t, s.Check("idemp_abc").IsDuplicate)

	s.Store("idemp_abc", IdempotencyRequest{Method: "payment"}, testResponse(model.PaymentSuccess))

	result := s.Check("idemp_abc")
	require.True(t, result.IsDuplicate)
	require.NotNil(t, result.Response)
	assert.Equal(t, model.PaymentSuccess, result.Response.Status)
	assert.Equal(t, "mpesa", result.Response.Data["provider"])
}

func TestIdempotencyStore_ExpiredEntryIsNotDuplicate(t *testing.T) {
	sink := &collectSink{}
	s := newTestStore(t, nil, sink)

	s.StoreWithTTL("idemp_exp", IdempotencyRequest{Method: "payment"}, testResponse(model.PaymentSuccess), -time.Second)

	result := s.Check("idemp_exp")
	assert.False(t, result.IsDuplicate)
	assert.Equal(t, 0, s.Size())
	require.Len(t, sink.byType(model.EventExpired), 1)

	// Re-storing after expiry behaves like a fresh key.
	s.Store("idemp_exp", IdempotencyRequest{Method: "payment"}, testResponse(model.PaymentPending))
	assert.True(t, s.Check("idemp_exp").IsDuplicate)
}

func TestIdempotencyStore_CapacityEvictsOldestByRequestTimestamp(t *testing.T) {
	sink := &collectSink{}
	s := newTestStore(t, &conf.Idempotency{MaxEntries: 2}, sink)

	base := time.Now()
	s.Store("a", IdempotencyRequest{Timestamp: base.Add(-2 * time.Hour)}, testResponse(model.PaymentSuccess))
	s.Store("b", IdempotencyRequest{Timestamp: base.Add(-1 * time.Hour)}, testResponse(model.PaymentSuccess))
	s.Store("c", IdempotencyRequest{Timestamp: base}, testResponse(model.PaymentSuccess))

	assert.Equal(t, 2, s.Size())
	assert.False(t, s.Check("a").IsDuplicate)
	assert.True(t, s.Check("b").IsDuplicate)
	assert.True(t, s.Check("c").IsDuplicate)

	evicted := sink.byType(model.EventEvicted)
	require.Len(t, evicted, 1)
	assert.Equal(t, "a", evicted[0].Key)
}

func TestIdempotencyStore_OverwriteDoesNotEvict(t *testing.T) {
	s := newTestStore(t, &conf.Idempotency{MaxEntries: 2})

	s.Store("a", IdempotencyRequest{}, testResponse(model.PaymentSuccess))
	s.Store("b", IdempotencyRequest{}, testResponse(model.PaymentSuccess))

	// Storing an existing key at capacity replaces in place.
	s.Store("a", IdempotencyRequest{}, testResponse(model.PaymentError))

	assert.Equal(t, 2, s.Size())
	assert.True(t, s.Check("a").IsDuplicate)
	assert.True(t, s.Check("b").IsDuplicate)
}

func TestIdempotencyStore_OversizedResponseNotCached(t *testing.T) {
	sink := &collectSink{}
	s := newTestStore(t, &conf.Idempotency{MaxResponseSize: 128}, sink)

	resp := testResponse(model.PaymentSuccess)
	resp.Data["payload"] = strings.Repeat("x", 1024)

	s.Store("idemp_big", IdempotencyRequest{}, resp)

	assert.False(t, s.Check("idemp_big").IsDuplicate)
	assert.Equal(t, 0, s.Size())

	errors := sink.byType(model.EventError)
	require.Len(t, errors, 1)
	assert.Equal(t, "idemp_big", errors[0].Key)
	assert.Empty(t, sink.byType(model.EventStored))
}

func TestIdempotencyStore_Update(t *testing.T) {
	sink := &collectSink{}
	s := newTestStore(t, nil, sink)

	assert.False(t, s.Update("missing", testResponse(model.PaymentSuccess)))

	s.Store("idemp_p", IdempotencyRequest{}, testResponse(model.PaymentPending))
	require.True(t, s.Update("idemp_p", testResponse(model.PaymentSuccess)))

	result := s.Check("idemp_p")
	require.True(t, result.IsDuplicate)
	assert.Equal(t, model.PaymentSuccess, result.Response.Status)
	require.Len(t, sink.byType(model.EventUpdated), 1)
}

func TestIdempotencyStore_DeleteAndClear(t *testing.T) {
	s := newTestStore(t, nil)

	s.Store("a", IdempotencyRequest{}, testResponse(model.PaymentSuccess))
	s.Store("b", IdempotencyRequest{}, testResponse(model.PaymentSuccess))

	assert.True(t, s.Delete("a"))
	assert.False(t, s.Delete("a"))
	assert.Equal(t, 1, s.Size())

	s.Clear()
	assert.Equal(t, 0, s.Size())
}

func TestIdempotencyStore_SweepAndStats(t *testing.T) {
	s := newTestStore(t, &conf.Idempotency{MaxEntries: 100})

	s.Store("s1", IdempotencyRequest{}, testResponse(model.PaymentSuccess))
	s.Store("s2", IdempotencyRequest{}, testResponse(model.PaymentSuccess))
	s.Store("e1", IdempotencyRequest{}, testResponse(model.PaymentError))
	s.Store("p1", IdempotencyRequest{}, testResponse(model.PaymentPending))
	s.StoreWithTTL("old", IdempotencyRequest{}, testResponse(model.PaymentSuccess), -time.Second)

	stats := s.Stats()
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Success)
	assert.Equal(t, 1, stats.Error)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 100, stats.Capacity)

	assert.Equal(t, 0, s.Sweep())
}

func TestGenerateKey_Deterministic(t *testing.T) {
	s := newTestStore(t, nil)

	params := KeyParams{
		Operation: "payment",
		Amount:    150.50,
		Currency:  "kes",
		Recipient: "+254712345678",
		Metadata:  map[string]string{"reference": "INV-001", "narration": "rent"},
	}

	k1 := s.GenerateKey(params)
	k2 := s.GenerateKey(params)
	assert.Equal(t, k1, k2)
	assert.True(t, strings.HasPrefix(k1, "idemp_"))
}

func TestGenerateKey_CurrencyCaseInsensitive(t *testing.T) {
	s := newTestStore(t, nil)

	a := s.GenerateKey(KeyParams{Operation: "payment", Amount: 10, Currency: "kes"})
	b := s.GenerateKey(KeyParams{Operation: "payment", Amount: 10, Currency: "KES"})
	assert.Equal(t, a, b)
}

func TestGenerateKey_MetadataIdentitySubset(t *testing.T) {
	s := newTestStore(t, nil)

	// Only identity metadata participates in the key; operational fields
	// like channel or tags do not change it.
	a := s.GenerateKey(KeyParams{
		Operation: "payment", Amount: 10, Currency: "KES",
		Metadata: map[string]string{"reference": "INV-001", "channel": "api"},
	})
	b := s.GenerateKey(KeyParams{
		Operation: "payment", Amount: 10, Currency: "KES",
		Metadata: map[string]string{"reference": "INV-001", "channel": "batch"},
	})
	assert.Equal(t, a, b)

	c := s.GenerateKey(KeyParams{
		Operation: "payment", Amount: 10, Currency: "KES",
		Metadata: map[string]string{"reference": "INV-002"},
	})
	assert.NotEqual(t, a, c)
}

func TestGenerateKey_DistinguishesRequests(t *testing.T) {
	s := newTestStore(t, nil)

	base := KeyParams{Operation: "payment", Amount: 100, Currency: "KES", Recipient: "+254700000001"}

	differentAmount := base
	differentAmount.Amount = 100.01

	differentRecipient := base
	differentRecipient.Recipient = "+254700000002"

	keys := map[string]bool{
		s.GenerateKey(base):               true,
		s.GenerateKey(differentAmount):    true,
		s.GenerateKey(differentRecipient): true,
	}
	assert.Len(t, keys, 3)
}
