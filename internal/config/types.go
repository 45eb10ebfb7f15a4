// Package config loads the pipeline configuration: server settings, the
// Azure DevOps connection, and provider credentials. Files are parsed on
// every load; nothing is memoized, so tests and long-running processes
// always see current values.
package config

// Config is the root configuration, read from config.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Azure     AzureConfig     `yaml:"azure"`
	Providers ProvidersConfig `yaml:"providers"`

	// BackendURL is the base URL CLI commands talk to. Resolution order:
	// explicit flag, persisted override, this file, default.
	BackendURL string `yaml:"backend_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`

	// AllowedOrigins are extra CORS origins beyond the Azure DevOps hosts
	// that are always allowed.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// RateLimit is the per-client request rate (requests per second).
	// Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the per-client burst size. Defaults to RateLimit
	// rounded up when unset.
	RateBurst int `yaml:"rate_burst"`
}

// AzureConfig configures the Azure DevOps connection. The PAT comes from
// the environment, never from the file.
type AzureConfig struct {
	OrgURL  string `yaml:"org_url"`
	Project string `yaml:"project"`

	// PAT is populated from AZURE_DEVOPS_PAT.
	PAT string `yaml:"-"`
}

// ProvidersConfig configures the AI providers. Keys come from the
// environment, never from the file.
type ProvidersConfig struct {
	// Default selects the provider used when a request names none.
	Default string `yaml:"default"`

	GeminiModel string `yaml:"gemini_model"`
	OpenAIModel string `yaml:"openai_model"`

	// GeminiKey is populated from GEMINI_API_KEY.
	GeminiKey string `yaml:"-"`
	// OpenAIKey is populated from OPENAI_API_KEY.
	OpenAIKey string `yaml:"-"`
}
