package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
//
// council.reasoning_effort is deliberately not checked: the hint is forwarded
// to providers verbatim, so provider-specific values must pass through.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// council.timeout must not be negative.
	if c.Council.Timeout < 0 {
		errs = append(errs, fmt.Errorf("council.timeout must not be negative, got %v", c.Council.Timeout))
	}

	// council.members must be well-formed: non-blank, prefixed, no duplicates.
	seen := make(map[string]bool, len(c.Council.Members))
	for i, m := range c.Council.Members {
		if strings.TrimSpace(m) == "" {
			errs = append(errs, fmt.Errorf("council.members[%d] must not be blank", i))
			continue
		}
		if !strings.Contains(m, "/") {
			errs = append(errs, fmt.Errorf("council.members[%d] %q must be of the form <provider>/<model>", i, m))
		}
		if seen[m] {
			errs = append(errs, fmt.Errorf("council.members contains duplicate %q", m))
		}
		seen[m] = true
	}

	// council.chairman, when set, must be prefixed like any member ID.
	if c.Council.Chairman != "" && !strings.Contains(c.Council.Chairman, "/") {
		errs = append(errs, fmt.Errorf("council.chairman %q must be of the form <provider>/<model>", c.Council.Chairman))
	}

	// providers.endpoints entries need a name and a base_url; names must be
	// unique, slash-free (they become member ID prefixes), and must not
	// collide with the built-in backends.
	endpointNames := map[string]bool{"openai": true, "anthropic": true, "openrouter": true}
	for i, ep := range c.Providers.Endpoints {
		if ep.Name == "" {
			errs = append(errs, fmt.Errorf("providers.endpoints[%d].name is required", i))
			continue
		}
		if strings.Contains(ep.Name, "/") {
			errs = append(errs, fmt.Errorf("providers.endpoints[%d].name %q must not contain '/'", i, ep.Name))
		}
		if ep.BaseURL == "" {
			errs = append(errs, fmt.Errorf("providers.endpoints[%d].base_url is required", i))
		}
		if endpointNames[ep.Name] {
			errs = append(errs, fmt.Errorf("providers.endpoints[%d].name %q is already taken", i, ep.Name))
		}
		endpointNames[ep.Name] = true
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "memory", "postgres", "none":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\", \"postgres\", or \"none\", got %q", c.Storage.Type))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	// auth.type must be a known value.
	switch c.Auth.Type {
	case "none", "apikey", "jwt":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	// auth.type=jwt needs a JWKS endpoint.
	if c.Auth.Type == "jwt" && c.Auth.JWT.JWKSURL == "" {
		errs = append(errs, fmt.Errorf("auth.jwt.jwks_url is required when auth.type is \"jwt\""))
	}

	// Rate limits must not be negative; zero means unlimited.
	if c.Auth.RateLimit.DefaultRPM < 0 {
		errs = append(errs, fmt.Errorf("auth.rate_limit.default_rpm must not be negative, got %d", c.Auth.RateLimit.DefaultRPM))
	}
	for tier, rpm := range c.Auth.RateLimit.Tiers {
		if rpm < 0 {
			errs = append(errs, fmt.Errorf("auth.rate_limit.tiers[%q] must not be negative, got %d", tier, rpm))
		}
	}

	return errors.Join(errs...)
}
