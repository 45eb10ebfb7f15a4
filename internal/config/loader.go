package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values for Config.
const (
	DefaultServerPort  = 5000
	DefaultBackendURL  = "http://localhost:5000"
	DefaultProvider    = "gemini"
	DefaultRateLimit   = 5.0
	DefaultRateBurst   = 10
	configFileName     = "config.yaml"
	backendURLFileName = "backend_url"
)

// Environment variable names.
const (
	EnvGeminiKey = "GEMINI_API_KEY"
	EnvOpenAIKey = "OPENAI_API_KEY"
	EnvAzurePAT  = "AZURE_DEVOPS_PAT"
)

// DefaultServerConfig returns a ServerConfig with sensible default values.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:      DefaultServerPort,
		RateLimit: DefaultRateLimit,
		RateBurst: DefaultRateBurst,
	}
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Server:     DefaultServerConfig(),
		BackendURL: DefaultBackendURL,
		Providers: ProvidersConfig{
			Default: DefaultProvider,
		},
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Load reads and parses config.yaml from the given base path, applies
// defaults for missing fields, and pulls credentials from the environment.
// A missing file yields the defaults.
func Load(basePath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filepath.Join(basePath, configFileName))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Providers.GeminiKey = os.Getenv(EnvGeminiKey)
	cfg.Providers.OpenAIKey = os.Getenv(EnvOpenAIKey)
	cfg.Azure.PAT = os.Getenv(EnvAzurePAT)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that all config values are valid.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return ValidationError{Field: "server.port", Message: "must be between 0 and 65535"}
	}
	if cfg.Server.RateLimit < 0 {
		return ValidationError{Field: "server.rate_limit", Message: "must not be negative"}
	}
	if cfg.Server.RateBurst < 0 {
		return ValidationError{Field: "server.rate_burst", Message: "must not be negative"}
	}
	if cfg.Providers.Default != "" && cfg.Providers.Default != "gemini" && cfg.Providers.Default != "openai" {
		return ValidationError{Field: "providers.default", Message: "must be gemini or openai"}
	}
	if cfg.BackendURL != "" && !strings.HasPrefix(cfg.BackendURL, "http://") && !strings.HasPrefix(cfg.BackendURL, "https://") {
		return ValidationError{Field: "backend_url", Message: "must be an http or https URL"}
	}
	return nil
}

// ResolveBackendURL picks the backend base URL for CLI commands. An explicit
// override (the --server flag) wins, then a previously persisted override,
// then the configured value.
func ResolveBackendURL(basePath, explicit string) string {
	if explicit != "" {
		return strings.TrimRight(explicit, "/")
	}
	if persisted, err := loadBackendURLOverride(basePath); err == nil && persisted != "" {
		return persisted
	}
	cfg, err := Load(basePath)
	if err != nil || cfg.BackendURL == "" {
		return DefaultBackendURL
	}
	return strings.TrimRight(cfg.BackendURL, "/")
}

// PersistBackendURL stores a backend URL override so later commands use it
// without the flag. An empty URL clears the override.
func PersistBackendURL(basePath, backendURL string) error {
	path := filepath.Join(basePath, backendURLFileName)
	if backendURL == "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to clear backend URL override: %w", err)
		}
		return nil
	}
	if !strings.HasPrefix(backendURL, "http://") && !strings.HasPrefix(backendURL, "https://") {
		return ValidationError{Field: "backend_url", Message: "must be an http or https URL"}
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(backendURL+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to persist backend URL override: %w", err)
	}
	return nil
}

func loadBackendURLOverride(basePath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(basePath, backendURLFileName))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(strings.TrimSpace(string(data)), "/"), nil
}

// DefaultBasePath returns the per-user configuration directory.
func DefaultBasePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "testgenius")
	}
	return ".testgenius"
}
