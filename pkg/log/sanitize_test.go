package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeField_NonSensitivePassesThrough(t *testing.T) {
	assert.Equal(t, "mpesa", SanitizeField("provider", "mpesa"))
	assert.Equal(t, "KES", SanitizeField("currency", "KES"))
	assert.Equal(t, "", SanitizeField("api_key", ""))
}

func TestSanitizeField_Secrets(t *testing.T) {
	tests := []struct {
		key      string
		value    string
		expected string
	}{
		{"api_key", "abcdefghij", "abcd**ghij"},
		{"password", "hunter2", "h*****2"},
		{"access_token", "ab", "**"},
		{"card_number", "4111111111111111", "4111********1111"},
		{"cvv", "123", "1*3"},
		{"iban", "DE89370400440532013000", "DE89**************3000"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, SanitizeField(tt.key, tt.value), "key %s", tt.key)
	}
}

func TestSanitizeField_Msisdn(t *testing.T) {
	assert.Equal(t, "+2547*****678", SanitizeField("msisdn", "+254712345678"))
	assert.Equal(t, "0712*****678", SanitizeField("phone", "071212345678"))
	assert.Equal(t, "+2547*****678", SanitizeField("recipient", "+254712345678"))
	assert.Equal(t, "+2547*****678", SanitizeField("customer_msisdn", "+254712345678"))

	// Too short to keep any digits
	assert.Equal(t, "******", SanitizeField("phone", "123456"))
}

func TestSanitizeField_Email(t *testing.T) {
	assert.Equal(t, "joh***@example.com", SanitizeField("email", "john.doe@example.com"))
	assert.Equal(t, "a**@example.com", SanitizeField("customer_email", "abc@example.com"))
	assert.Equal(t, "***********", SanitizeField("email", "not-anemail"))
}

func TestGenerateRequestID(t *testing.T) {
	a := GenerateRequestID()
	b := GenerateRequestID()

	assert.Len(t, a, 10)
	assert.Len(t, b, 10)
	assert.NotEqual(t, a, b)
}
