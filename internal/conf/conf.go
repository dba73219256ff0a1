package conf

import "time"

// Bootstrap is the root configuration structure.
type Bootstrap struct {
	Server  *Server
	Data    *Data
	Routing *Routing
	Auth    *Auth
	Log     *Log
}

// Server holds transport configuration.
type Server struct {
	Http *Server_HTTP
}

// Server_HTTP holds HTTP server configuration.
type Server_HTTP struct {
	Network string
	Addr    string
	Timeout time.Duration
}

// Data holds data layer configuration.
type Data struct {
	Database *Data_Database
	Redis    *Data_Redis
}

// Data_Database holds the audit database configuration.
type Data_Database struct {
	Driver string
	Source string
}

// Data_Redis holds Redis configuration.
type Data_Redis struct {
	Network      string
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Routing holds resilience and provider routing configuration.
type Routing struct {
	Breaker     *Breaker
	Health      *Health
	Idempotency *Idempotency
	TxnCache    *TxnCache
	Providers   []*Provider
}

// Breaker holds default circuit-breaker settings applied to every provider
// that does not register an explicit config.
type Breaker struct {
	FailureThreshold      int
	ResetTimeout          time.Duration
	SuccessThreshold      int
	HalfOpenAdmitFraction float64
}

// Health holds health monitor settings.
type Health struct {
	CheckInterval     time.Duration
	Timeout           time.Duration
	FailureThreshold  int
	CriticalProviders []string
}

// Idempotency holds idempotency store settings.
type Idempotency struct {
	DefaultTTL      time.Duration
	MaxEntries      int
	MaxResponseSize int
}

// TxnCache holds transaction-id cache settings.
type TxnCache struct {
	MaxIDs int
	TTL    time.Duration
	// Backend selects the dedup backend: "memory" (default) or "redis".
	Backend string
}

// Provider describes one payment provider known to the router. The
// mapstructure tags let viper unmarshal the snake_case config keys.
type Provider struct {
	Name        string   `mapstructure:"name"`
	BaseURL     string   `mapstructure:"base_url"`
	Countries   []string `mapstructure:"countries"`
	Currencies  []string `mapstructure:"currencies"`
	FeePercent  float64  `mapstructure:"fee_percent"`
	Speed       string   `mapstructure:"speed"`
	Reliability float64  `mapstructure:"reliability"`
	Critical    bool     `mapstructure:"critical"`
}

// Auth holds API authentication configuration for admin endpoints.
type Auth struct {
	ApiKey string
}

// Log holds logging configuration.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}
