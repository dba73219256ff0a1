package log

import (
	"strings"
)

// SanitizeField checks if the key contains sensitive keywords and sanitizes the value
func SanitizeField(key, value string) string {
	if value == "" {
		return value
	}

	lowerKey := strings.ToLower(key)

	// Payment-sensitive and credential keywords
	sensitiveKeywords := []string{
		"password", "passwd", "pwd",
		"api_key", "apikey", "api-key",
		"token", "access_token", "refresh_token",
		"secret", "auth", "authorization",
		"credential", "private_key", "privatekey",
		"pan", "card_number", "cardnumber", "cvv", "cvc",
		"account_number", "accountnumber", "iban",
	}

	isSensitive := false
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			isSensitive = true
			break
		}
	}

	// Special handling for email
	if strings.Contains(lowerKey, "email") || strings.Contains(lowerKey, "mail") {
		return sanitizeEmail(value)
	}

	// Mobile-money subscriber numbers keep country code and last 3 digits
	if strings.Contains(lowerKey, "msisdn") || strings.Contains(lowerKey, "phone") ||
		strings.Contains(lowerKey, "recipient") || strings.Contains(lowerKey, "customer") {
		return sanitizeMsisdn(value)
	}

	if isSensitive {
		return sanitizeToken(value)
	}

	return value
}

// sanitizeToken masks secret values showing only first 4 and last 4 characters
func sanitizeToken(value string) string {
	if len(value) <= 8 {
		// For short strings, mask everything except first and last char
		if len(value) <= 2 {
			return strings.Repeat("*", len(value))
		}
		return string(value[0]) + strings.Repeat("*", len(value)-2) + string(value[len(value)-1])
	}

	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// sanitizeMsisdn masks subscriber numbers, keeping a short prefix and the last
// 3 digits: +254712345678 -> +2547*****678
func sanitizeMsisdn(value string) string {
	if len(value) <= 6 {
		return strings.Repeat("*", len(value))
	}

	prefixLen := 4
	if strings.HasPrefix(value, "+") {
		prefixLen = 5
	}
	if prefixLen+3 >= len(value) {
		return strings.Repeat("*", len(value))
	}

	return value[:prefixLen] + strings.Repeat("*", len(value)-prefixLen-3) + value[len(value)-3:]
}

// sanitizeEmail masks email showing first 3 characters + @domain
func sanitizeEmail(value string) string {
	parts := strings.Split(value, "@")
	if len(parts) != 2 {
		// Invalid email format, mask everything
		return strings.Repeat("*", len(value))
	}

	localPart := parts[0]
	domain := parts[1]

	if len(localPart) <= 3 {
		if len(localPart) == 0 {
			return "@" + domain
		}
		return string(localPart[0]) + strings.Repeat("*", len(localPart)-1) + "@" + domain
	}

	return localPart[:3] + "***@" + domain
}
