// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with PAYLANE_.
//
// Configuration priority: CLI flags > Environment variables > Config file > Defaults
//
// Parameters:
//   - configPath: Path to the configuration file or directory
//
// Returns:
//   - *Bootstrap: Loaded configuration
//   - error: Configuration loading or validation error
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Enable environment variable support with PAYLANE_ prefix
	v.SetEnvPrefix("PAYLANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow direct environment variable names (without PAYLANE_ prefix) for compatibility
	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "PAYLANE_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "REDIS_ADDR", "PAYLANE_DATA_REDIS_ADDR")
	_ = v.BindEnv("auth.api_key", "PAYLANE_API_KEY", "PAYLANE_AUTH_API_KEY")

	// Load configuration file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// If config file is specified but not found, return error
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	// Parse configuration into Bootstrap structure
	bc := &Bootstrap{
		Server: &Server{
			Http: &Server_HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: v.GetDuration("server.http.timeout"),
			},
		},
		Data: &Data{
			Database: &Data_Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
			Redis: &Data_Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				ReadTimeout:  v.GetDuration("data.redis.read_timeout"),
				WriteTimeout: v.GetDuration("data.redis.write_timeout"),
			},
		},
		Routing: &Routing{
			Breaker: &Breaker{
				FailureThreshold:      v.GetInt("routing.breaker.failure_threshold"),
				ResetTimeout:          v.GetDuration("routing.breaker.reset_timeout"),
				SuccessThreshold:      v.GetInt("routing.breaker.success_threshold"),
				HalfOpenAdmitFraction: v.GetFloat64("routing.breaker.half_open_admit_fraction"),
			},
			Health: &Health{
				CheckInterval:     v.GetDuration("routing.health.check_interval"),
				Timeout:           v.GetDuration("routing.health.timeout"),
				FailureThreshold:  v.GetInt("routing.health.failure_threshold"),
				CriticalProviders: v.GetStringSlice("routing.health.critical_providers"),
			},
			Idempotency: &Idempotency{
				DefaultTTL:      v.GetDuration("routing.idempotency.default_ttl"),
				MaxEntries:      v.GetInt("routing.idempotency.max_entries"),
				MaxResponseSize: v.GetInt("routing.idempotency.max_response_size"),
			},
			TxnCache: &TxnCache{
				MaxIDs:  v.GetInt("routing.txn_cache.max_ids"),
				TTL:     v.GetDuration("routing.txn_cache.ttl"),
				Backend: v.GetString("routing.txn_cache.backend"),
			},
		},
		Auth: &Auth{
			ApiKey: v.GetString("auth.api_key"),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	// Providers are a list and cannot come from flat env vars; read them
	// from the config file section.
	if err := v.UnmarshalKey("routing.providers", &bc.Routing.Providers); err != nil {
		return nil, fmt.Errorf("failed to parse routing.providers: %w", err)
	}

	// Validate required fields
	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 30*time.Second)

	// Data defaults
	v.SetDefault("data.database.driver", "mysql")
	// Note: data.database.source (MYSQL_DSN) is optional; audit logging is
	// skipped when it is empty.

	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	// Circuit breaker defaults
	v.SetDefault("routing.breaker.failure_threshold", 5)
	v.SetDefault("routing.breaker.reset_timeout", 30*time.Second)
	v.SetDefault("routing.breaker.success_threshold", 2)
	v.SetDefault("routing.breaker.half_open_admit_fraction", 0.5)

	// Health monitor defaults
	v.SetDefault("routing.health.check_interval", 30*time.Second)
	v.SetDefault("routing.health.timeout", 5*time.Second)
	v.SetDefault("routing.health.failure_threshold", 3)

	// Idempotency store defaults
	v.SetDefault("routing.idempotency.default_ttl", 24*time.Hour)
	v.SetDefault("routing.idempotency.max_entries", 10000)
	v.SetDefault("routing.idempotency.max_response_size", 64*1024)

	// Transaction id cache defaults
	v.SetDefault("routing.txn_cache.max_ids", 10000)
	v.SetDefault("routing.txn_cache.ttl", time.Hour)
	v.SetDefault("routing.txn_cache.backend", "memory")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all required configuration fields are present and valid.
// It returns an error listing all invalid fields.
func Validate(bc *Bootstrap) error {
	var invalid []string

	if bc.Routing == nil || bc.Routing.Breaker == nil || bc.Routing.Breaker.FailureThreshold <= 0 {
		invalid = append(invalid, "routing.breaker.failure_threshold (must be > 0)")
	}

	if bc.Routing != nil && bc.Routing.Breaker != nil {
		f := bc.Routing.Breaker.HalfOpenAdmitFraction
		if f < 0 || f > 1 {
			invalid = append(invalid, "routing.breaker.half_open_admit_fraction (must be in [0,1])")
		}
	}

	if bc.Routing == nil || bc.Routing.Health == nil || bc.Routing.Health.CheckInterval <= 0 {
		invalid = append(invalid, "routing.health.check_interval (must be > 0)")
	}

	if bc.Routing == nil || bc.Routing.Idempotency == nil || bc.Routing.Idempotency.MaxEntries <= 0 {
		invalid = append(invalid, "routing.idempotency.max_entries (must be > 0)")
	}

	if bc.Routing != nil && bc.Routing.TxnCache != nil {
		switch bc.Routing.TxnCache.Backend {
		case "", "memory", "redis":
		default:
			invalid = append(invalid, "routing.txn_cache.backend (must be memory or redis)")
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration fields: %s", strings.Join(invalid, ", "))
	}

	return nil
}
