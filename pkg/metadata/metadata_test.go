package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	meta, err := Parse(`{"reference":"INV-001","narration":"rent","channel":"api","tags":["urgent"]}`)
	require.NoError(t, err)
	assert.Equal(t, "INV-001", meta.Reference)
	assert.Equal(t, "rent", meta.Narration)
	assert.Equal(t, "api", meta.Channel)
	assert.Equal(t, []string{"urgent"}, meta.Tags)
}

func TestParse_Empty(t *testing.T) {
	meta, err := Parse("")
	require.NoError(t, err)
	assert.True(t, meta.IsEmpty())
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("{not json")
	assert.Error(t, err)
}

func TestString_RoundTrip(t *testing.T) {
	meta := &PaymentMetadata{Reference: "INV-001", ExternalID: "ext-9"}

	parsed, err := Parse(meta.String())
	require.NoError(t, err)
	assert.Equal(t, meta, parsed)
}

func TestString_EmptyMetadata(t *testing.T) {
	meta := &PaymentMetadata{}
	assert.Equal(t, "", meta.String())
}

func TestNarrowSlice(t *testing.T) {
	raw := map[string]string{
		"reference":   "INV-001",
		"narration":   "rent",
		"external_id": "ext-9",
		"channel":     "api",
		"custom":      "x",
	}

	slice := NarrowSlice(raw)
	assert.Equal(t, map[string]string{
		"reference":   "INV-001",
		"narration":   "rent",
		"external_id": "ext-9",
	}, slice)
}

func TestNarrowSlice_NoIdentityKeys(t *testing.T) {
	assert.Nil(t, NarrowSlice(nil))
	assert.Nil(t, NarrowSlice(map[string]string{}))
	assert.Nil(t, NarrowSlice(map[string]string{"channel": "api"}))
	assert.Nil(t, NarrowSlice(map[string]string{"reference": ""}))
}
