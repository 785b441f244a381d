// Command server runs the gremium council gateway.
//
// Configuration is layered: built-in defaults, an optional YAML file
// (-config flag, GREMIUM_CONFIG, ./gremium.yaml, /etc/gremium/config.yaml),
// then environment overrides. The most common ones:
//
//	GREMIUM_PORT       - Listen port (default: 8080)
//	GREMIUM_MEMBERS    - Default roster, comma-separated <provider>/<model> IDs
//	GREMIUM_CHAIRMAN   - Member that synthesizes when a query asks for it
//	GREMIUM_STORAGE    - Storage type: "memory", "postgres", or "none"
//	OPENAI_API_KEY     - OpenAI credentials
//	ANTHROPIC_API_KEY  - Anthropic credentials
//	OPENROUTER_API_KEY - OpenRouter credentials
//
// See pkg/config for the full schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gremium-dev/gremium/pkg/api"
	"github.com/gremium-dev/gremium/pkg/auth"
	"github.com/gremium-dev/gremium/pkg/auth/apikey"
	"github.com/gremium-dev/gremium/pkg/auth/jwt"
	"github.com/gremium-dev/gremium/pkg/auth/noop"
	"github.com/gremium-dev/gremium/pkg/config"
	"github.com/gremium-dev/gremium/pkg/council"
	"github.com/gremium-dev/gremium/pkg/debug"
	"github.com/gremium-dev/gremium/pkg/engine"
	"github.com/gremium-dev/gremium/pkg/mcptool"
	"github.com/gremium-dev/gremium/pkg/observability"
	"github.com/gremium-dev/gremium/pkg/provider"
	"github.com/gremium-dev/gremium/pkg/provider/anthropic"
	"github.com/gremium-dev/gremium/pkg/provider/openai"
	"github.com/gremium-dev/gremium/pkg/provider/openaicompat"
	"github.com/gremium-dev/gremium/pkg/storage/memory"
	"github.com/gremium-dev/gremium/pkg/storage/postgres"
	"github.com/gremium-dev/gremium/pkg/transport"
	transporthttp "github.com/gremium-dev/gremium/pkg/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	debug.Init(cfg.Observability.Debug, cfg.Observability.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Register provider backends.
	registry, err := buildRegistry(cfg)
	if err != nil {
		return fmt.Errorf("building provider registry: %w", err)
	}
	defer registry.Close()

	names := registry.Names()
	if len(names) == 0 {
		return fmt.Errorf("no providers configured: set an API key or define an endpoint")
	}
	slog.Info("providers registered", "providers", names)

	panel, err := council.New(registry, council.Config{
		Timeout: cfg.Council.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating council: %w", err)
	}

	// Optional conversation store.
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	eng, err := engine.New(panel, store, engine.Config{
		DefaultMembers:         cfg.Council.Members,
		DefaultChairman:        cfg.Council.Chairman,
		DefaultReasoningEffort: api.ReasoningEffort(cfg.Council.ReasoningEffort),
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	// HTTP adapter with the standard middleware chain. Conversation
	// endpoints report 501 when no store is configured.
	var conversations transport.ConversationService
	if store != nil {
		conversations = eng
	}
	adapter := transporthttp.NewAdapter(eng, conversations, transporthttp.DefaultConfig(),
		transport.Recovery(),
		transport.RequestID(),
		transport.Logging(slog.Default()),
	)

	// Outer mux: API, health, metrics, MCP.
	mux := http.NewServeMux()
	mux.Handle("/", adapter.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			if err := store.HealthCheck(r.Context()); err != nil {
				http.Error(w, "store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	if cfg.Observability.Metrics.Enabled {
		mux.Handle("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
	}
	if cfg.MCP.Enabled {
		tools := mcptool.New(eng)
		mux.Handle(cfg.MCP.Path, tools.Handler())
		slog.Info("mcp tool server mounted", "path", cfg.MCP.Path)
	}

	handler := withAuth(mux, cfg)
	handler = observability.MetricsMiddleware(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in background.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"port", cfg.Server.Port,
			"members", cfg.Council.Members,
			"chairman", cfg.Council.Chairman,
			"storage", cfg.Storage.Type,
			"auth", cfg.Auth.Type)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error.
	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// buildRegistry registers every configured backend. The official backends
// need an API key to be registered; extra endpoints are registered as
// OpenAI-compatible clients under their configured name.
func buildRegistry(cfg *config.Config) (*provider.Registry, error) {
	registry := provider.NewRegistry()
	timeout := cfg.Council.Timeout

	if cfg.Providers.OpenAI.APIKey != "" {
		p, err := openai.New(openai.Config{
			APIKey:  cfg.Providers.OpenAI.APIKey,
			BaseURL: cfg.Providers.OpenAI.BaseURL,
			Timeout: timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}

	if cfg.Providers.Anthropic.APIKey != "" {
		p, err := anthropic.New(anthropic.Config{
			APIKey:    cfg.Providers.Anthropic.APIKey,
			BaseURL:   cfg.Providers.Anthropic.BaseURL,
			MaxTokens: int64(cfg.Providers.Anthropic.MaxTokens),
			Timeout:   timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("anthropic: %w", err)
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}

	if cfg.Providers.OpenRouter.APIKey != "" {
		p, err := openaicompat.New(openaicompat.Config{
			Name:    "openrouter",
			BaseURL: cfg.Providers.OpenRouter.BaseURL,
			APIKey:  cfg.Providers.OpenRouter.APIKey,
			Timeout: timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("openrouter: %w", err)
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}

	for _, ep := range cfg.Providers.Endpoints {
		p, err := openaicompat.New(openaicompat.Config{
			Name:    ep.Name,
			BaseURL: ep.BaseURL,
			APIKey:  ep.APIKey,
			Timeout: timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("endpoint %q: %w", ep.Name, err)
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// buildStore creates the conversation store, or returns nil for
// stateless mode.
func buildStore(ctx context.Context, cfg *config.Config) (transport.ConversationStore, error) {
	switch cfg.Storage.Type {
	case "memory":
		slog.Info("storage enabled", "type", "memory", "max_size", cfg.Storage.MaxSize)
		return memory.New(cfg.Storage.MaxSize), nil
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("storage enabled", "type", "postgres", "max_conns", cfg.Storage.Postgres.MaxConns)
		return store, nil
	default: // "none"
		slog.Info("storage disabled")
		return nil, nil
	}
}

// withAuth wraps the handler with the configured authenticator chain and
// optional rate limiting. With auth disabled and no rate limit the
// handler is returned unwrapped.
func withAuth(next http.Handler, cfg *config.Config) http.Handler {
	if cfg.Auth.Type == "none" && !cfg.Auth.RateLimit.Enabled {
		return next
	}

	var limiter auth.RateLimiter
	if cfg.Auth.RateLimit.Enabled {
		tiers := make(map[string]auth.TierConfig, len(cfg.Auth.RateLimit.Tiers))
		for tier, rpm := range cfg.Auth.RateLimit.Tiers {
			tiers[tier] = auth.TierConfig{RequestsPerMinute: rpm}
		}
		limiter = auth.NewInProcessLimiter(tiers, cfg.Auth.RateLimit.DefaultRPM)
	}

	bypass := []string{"/healthz", "/readyz"}
	if cfg.Observability.Metrics.Enabled {
		bypass = append(bypass, cfg.Observability.Metrics.Path)
	}

	return auth.Middleware(buildAuthChain(cfg), limiter, bypass)(next)
}

// buildAuthChain assembles the authenticator chain for the configured
// auth type. Production chains reject when every authenticator abstains;
// the no-auth chain accepts everything as anonymous so the rate limiter
// still sees an identity.
func buildAuthChain(cfg *config.Config) *auth.Chain {
	switch cfg.Auth.Type {
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			identity := auth.Identity{
				Subject:     k.Subject,
				ServiceTier: k.ServiceTier,
			}
			if k.TenantID != "" {
				identity.Metadata = map[string]string{"tenant_id": k.TenantID}
			}
			entries = append(entries, apikey.RawKeyEntry{Key: k.Key, Identity: identity})
		}
		return &auth.Chain{
			Authenticators:  []auth.Authenticator{apikey.New(entries)},
			DefaultDecision: auth.No,
		}
	case "jwt":
		return &auth.Chain{
			Authenticators: []auth.Authenticator{jwt.New(jwt.Config{
				JWKSURL:  cfg.Auth.JWT.JWKSURL,
				Issuer:   cfg.Auth.JWT.Issuer,
				Audience: cfg.Auth.JWT.Audience,
			})},
			DefaultDecision: auth.No,
		}
	default: // "none"
		return &auth.Chain{
			Authenticators:  []auth.Authenticator{&noop.Authenticator{}},
			DefaultDecision: auth.Yes,
		}
	}
}
