// Package config provides unified configuration for the gremium server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (GREMIUM_ prefix, plus the
//     conventional provider key variables)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the gremium server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Council       CouncilConfig       `yaml:"council"`
	Providers     ProvidersConfig     `yaml:"providers"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `yaml:"port"`         // default: 8080
	ReadTimeout time.Duration `yaml:"read_timeout"` // default: 30s
	// WriteTimeout must cover a full fan-out plus synthesis, so its
	// default is well above the per-member timeout. Default: 300s.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// CouncilConfig holds the member roster and query behavior.
type CouncilConfig struct {
	// Members lists the default panel as "<provider>/<model>" IDs. Requests
	// may override it per query.
	Members []string `yaml:"members"`

	// Chairman is the member that synthesizes a final answer when a query
	// asks for synthesis.
	Chairman string `yaml:"chairman"`

	// Timeout bounds each member invocation. Default: 120s.
	Timeout time.Duration `yaml:"timeout"`

	// ReasoningEffort is the default effort hint ("", "low", "medium",
	// "high"). It is forwarded to providers verbatim and never validated
	// here, so provider-specific values pass through untouched.
	ReasoningEffort string `yaml:"reasoning_effort"`
}

// ProvidersConfig holds credentials and endpoints for the provider backends.
type ProvidersConfig struct {
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`

	// Endpoints lists additional OpenAI-compatible backends (LiteLLM
	// proxies, Gemini's compatibility endpoint, local inference servers).
	// Each entry's name becomes a member ID prefix.
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// OpenAIConfig configures the official OpenAI backend.
type OpenAIConfig struct {
	APIKey     string `yaml:"api_key"`
	APIKeyFile string `yaml:"api_key_file"` // _file variant for api_key
	BaseURL    string `yaml:"base_url"`     // optional override
}

// AnthropicConfig configures the official Anthropic backend.
type AnthropicConfig struct {
	APIKey     string `yaml:"api_key"`
	APIKeyFile string `yaml:"api_key_file"` // _file variant for api_key
	BaseURL    string `yaml:"base_url"`     // optional override
	MaxTokens  int    `yaml:"max_tokens"`   // response cap, default: 4096
}

// OpenRouterConfig configures the OpenRouter backend (OpenAI-compatible).
type OpenRouterConfig struct {
	APIKey     string `yaml:"api_key"`
	APIKeyFile string `yaml:"api_key_file"` // _file variant for api_key
	BaseURL    string `yaml:"base_url"`     // default: https://openrouter.ai/api/v1
}

// EndpointConfig describes one additional OpenAI-compatible backend.
type EndpointConfig struct {
	Name       string `yaml:"name"`     // member ID prefix, required
	BaseURL    string `yaml:"base_url"` // required
	APIKey     string `yaml:"api_key"`
	APIKeyFile string `yaml:"api_key_file"` // _file variant for api_key
}

// StorageConfig holds conversation persistence settings. Type "none" runs
// the server stateless: one-shot queries work, conversation endpoints
// report 501.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "memory", "postgres", or "none", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type      string          `yaml:"type"`       // "none", "apikey", or "jwt", default: "none"
	APIKeys   []APIKeyConfig  `yaml:"api_keys"`   // API key entries for type=apikey
	JWT       JWTConfig       `yaml:"jwt"`        // JWT settings for type=jwt
	RateLimit RateLimitConfig `yaml:"rate_limit"` // per-subject rate limiting
}

// RateLimitConfig holds in-process per-subject rate limiting settings.
// Limits are requests per minute, keyed by the identity's service tier.
type RateLimitConfig struct {
	Enabled    bool           `yaml:"enabled"`     // default: false
	DefaultRPM int            `yaml:"default_rpm"` // fallback when no tier matches, default: 60
	Tiers      map[string]int `yaml:"tiers"`       // requests/minute per service tier
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key         string `yaml:"key"`
	KeyFile     string `yaml:"key_file"` // _file variant for key
	Subject     string `yaml:"subject"`
	TenantID    string `yaml:"tenant_id"`
	ServiceTier string `yaml:"service_tier"`
}

// JWTConfig holds JWT validation settings.
type JWTConfig struct {
	JWKSURL  string `yaml:"jwks_url"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// MCPConfig holds the MCP (Model Context Protocol) tool server settings.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/mcp"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	// LogLevel sets the global slog level: ERROR, WARN, INFO, DEBUG, TRACE.
	LogLevel string `yaml:"log_level"` // default: "INFO"

	// Debug enables category-scoped debug logging, e.g. "providers,council"
	// or "all". Empty disables it.
	Debug string `yaml:"debug"`

	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in. The default
// roster and chairman follow the classic council lineup; members whose
// provider ends up unconfigured simply settle absent at query time.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 300 * time.Second,
		},
		Council: CouncilConfig{
			Members: []string{
				"openai/gpt-4o",
				"gemini/gemini-1.5-pro",
				"anthropic/claude-3-5-sonnet-20241022",
				"openrouter/x-ai/grok-2",
			},
			Chairman: "gemini/gemini-1.5-pro",
			Timeout:  120 * time.Second,
		},
		Providers: ProvidersConfig{
			Anthropic: AnthropicConfig{
				MaxTokens: 4096,
			},
			OpenRouter: OpenRouterConfig{
				BaseURL: "https://openrouter.ai/api/v1",
			},
		},
		Storage: StorageConfig{
			Type:    "memory",
			MaxSize: 10000,
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Auth: AuthConfig{
			Type: "none",
			RateLimit: RateLimitConfig{
				DefaultRPM: 60,
			},
		},
		MCP: MCPConfig{
			Enabled: true,
			Path:    "/mcp",
		},
		Observability: ObservabilityConfig{
			LogLevel: "INFO",
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
