package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, GREMIUM_CONFIG env, ./gremium.yaml,
//     /etc/gremium/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. GREMIUM_CONFIG environment variable
// 3. ./gremium.yaml in the current directory
// 4. /etc/gremium/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("GREMIUM_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"gremium.yaml",
		"/etc/gremium/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields. GREMIUM_*
// variables always win over file values. The conventional provider key
// variables (OPENAI_API_KEY, ANTHROPIC_API_KEY, OPENROUTER_API_KEY) only
// fill keys the file left empty, since those names are commonly exported
// for unrelated tooling.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GREMIUM_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GREMIUM_MEMBERS"); v != "" {
		if members := splitMembers(v); len(members) > 0 {
			cfg.Council.Members = members
		}
	}
	if v := os.Getenv("GREMIUM_CHAIRMAN"); v != "" {
		cfg.Council.Chairman = v
	}
	if v := os.Getenv("GREMIUM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Council.Timeout = d
		}
	}
	if v := os.Getenv("GREMIUM_REASONING_EFFORT"); v != "" {
		cfg.Council.ReasoningEffort = v
	}
	if v := os.Getenv("GREMIUM_STORAGE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("GREMIUM_STORAGE_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			cfg.Storage.MaxSize = size
		}
	}
	if v := os.Getenv("GREMIUM_AUTH_TYPE"); v != "" {
		cfg.Auth.Type = v
	}
	if v := os.Getenv("GREMIUM_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("GREMIUM_DEBUG"); v != "" {
		cfg.Observability.Debug = v
	}

	// GREMIUM_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("GREMIUM_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err == nil && len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}

	// Conventional provider key variables fill only empty fields.
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Providers.OpenAI.APIKey == "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && cfg.Providers.Anthropic.APIKey == "" {
		cfg.Providers.Anthropic.APIKey = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" && cfg.Providers.OpenRouter.APIKey == "" {
		cfg.Providers.OpenRouter.APIKey = v
	}
}

// splitMembers parses a comma-separated member list, trimming whitespace and
// dropping empty entries.
func splitMembers(s string) []string {
	var members []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			members = append(members, trimmed)
		}
	}
	return members
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing API keys JSON: %w", err)
	}
	return keys, nil
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. For each field ending in _file, if the value field is empty
// and the file field is set, the file is read, whitespace is trimmed, and
// the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// providers.*.api_key_file -> providers.*.api_key
	if cfg.Providers.OpenAI.APIKeyFile != "" && cfg.Providers.OpenAI.APIKey == "" {
		val, err := readSecretFile(cfg.Providers.OpenAI.APIKeyFile)
		if err != nil {
			return fmt.Errorf("providers.openai.api_key_file: %w", err)
		}
		cfg.Providers.OpenAI.APIKey = val
	}
	if cfg.Providers.Anthropic.APIKeyFile != "" && cfg.Providers.Anthropic.APIKey == "" {
		val, err := readSecretFile(cfg.Providers.Anthropic.APIKeyFile)
		if err != nil {
			return fmt.Errorf("providers.anthropic.api_key_file: %w", err)
		}
		cfg.Providers.Anthropic.APIKey = val
	}
	if cfg.Providers.OpenRouter.APIKeyFile != "" && cfg.Providers.OpenRouter.APIKey == "" {
		val, err := readSecretFile(cfg.Providers.OpenRouter.APIKeyFile)
		if err != nil {
			return fmt.Errorf("providers.openrouter.api_key_file: %w", err)
		}
		cfg.Providers.OpenRouter.APIKey = val
	}
	for i := range cfg.Providers.Endpoints {
		ep := &cfg.Providers.Endpoints[i]
		if ep.APIKeyFile != "" && ep.APIKey == "" {
			val, err := readSecretFile(ep.APIKeyFile)
			if err != nil {
				return fmt.Errorf("providers.endpoints[%d].api_key_file: %w", i, err)
			}
			ep.APIKey = val
		}
	}

	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	// auth.api_keys[*].key_file -> auth.api_keys[*].key
	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile != "" && cfg.Auth.APIKeys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys[i].Key = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
