// Package middleware provides HTTP middleware for authentication and request logging.
package middleware

import (
	"context"
	"strings"

	"PayLane/internal/conf"
	pkglog "PayLane/pkg/log"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// apiKeyMaskedContextKey is the context key for storing the masked API key
	apiKeyMaskedContextKey contextKey = "api_key_masked"
)

// adminPrefixes lists the route prefixes that require a valid API key.
// Payment submission and health endpoints stay open.
var adminPrefixes = []string{
	"/v1/breakers",
	"/v1/idempotency",
}

// Auth returns an HTTP authentication middleware.
//
// It extracts the API key from "Authorization: Bearer {key}" or the
// X-API-Key header. Admin routes (breaker trip/reset, idempotency stats)
// reject requests whose key does not match the configured one. When no
// key is configured the admin surface is open, which is the expected
// setup for local development.
func Auth(c *conf.Auth, logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			var (
				apiKey string
				path   string
			)

			if tr, ok := transport.FromServerContext(ctx); ok {
				if ht, ok := tr.(http.Transporter); ok {
					httpReq := ht.Request()
					path = httpReq.URL.Path

					authHeader := httpReq.Header.Get("Authorization")
					if authHeader != "" {
						apiKey = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
					}
					if apiKey == "" {
						apiKey = httpReq.Header.Get("X-API-Key")
					}
				}
			}

			if c != nil && c.ApiKey != "" && isAdminPath(path) {
				if apiKey != c.ApiKey {
					logger.Auth("rejected admin request: invalid or missing API key",
						"path", path,
						"api_key_masked", maskAPIKey(apiKey),
					)
					return nil, kerrors.Unauthorized("INVALID_API_KEY", "a valid API key is required for this endpoint")
				}
			}

			if apiKey != "" {
				maskedKey := maskAPIKey(apiKey)
				logger.Auth("authenticated request from key ("+maskedKey+")",
					"api_key_masked", maskedKey,
				)
				ctx = context.WithValue(ctx, apiKeyMaskedContextKey, maskedKey)
			}

			return handler(ctx, req)
		}
	}
}

// isAdminPath reports whether the path belongs to the admin surface.
func isAdminPath(path string) bool {
	for _, prefix := range adminPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// maskAPIKey masks an API key, keeping only the first 8 characters.
// Example: "pk-1234567890abcdef" -> "pk-12345***"
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:8] + "***"
}
