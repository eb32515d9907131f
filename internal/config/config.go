package config

import (
	"fmt"
	"time"
)

// Config represents the full application configuration.
type Config struct {
	Providers     map[string]ProviderConfig `yaml:"providers"`
	HTTP          HTTPConfig                `yaml:"http"`
	Server        ServerConfig              `yaml:"server"`
	GitLab        GitLabConfig              `yaml:"gitlab"`
	Review        ReviewConfig              `yaml:"review"`
	Git           GitConfig                 `yaml:"git"`
	Output        OutputConfig              `yaml:"output"`
	Redaction     RedactionConfig           `yaml:"redaction"`
	Store         StoreConfig               `yaml:"store"`
	Observability ObservabilityConfig       `yaml:"observability"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey"`

	// Generation settings.
	MaxOutputTokens int     `yaml:"maxOutputTokens"`
	Temperature     float64 `yaml:"temperature"`

	// HTTP overrides (optional, use global HTTP config if not set)
	Timeout        *string `yaml:"timeout,omitempty"`
	MaxRetries     *int    `yaml:"maxRetries,omitempty"`
	InitialBackoff *string `yaml:"initialBackoff,omitempty"`
	MaxBackoff     *string `yaml:"maxBackoff,omitempty"`
}

// HTTPConfig holds global HTTP client settings.
type HTTPConfig struct {
	Timeout           string  `yaml:"timeout"`
	MaxRetries        int     `yaml:"maxRetries"`
	InitialBackoff    string  `yaml:"initialBackoff"`
	MaxBackoff        string  `yaml:"maxBackoff"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// WebhookSecret is compared against X-Gitlab-Token. Empty disables the
	// check.
	WebhookSecret string `yaml:"webhookSecret"`

	// TaskTimeout bounds one background review, as a duration string.
	TaskTimeout string `yaml:"taskTimeout"`
}

// ParsedTaskTimeout returns the task timeout or a default.
func (s ServerConfig) ParsedTaskTimeout() time.Duration {
	if d, err := time.ParseDuration(s.TaskTimeout); err == nil && d > 0 {
		return d
	}
	return 5 * time.Minute
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GitLabConfig configures the gateway.
type GitLabConfig struct {
	BaseURL string `yaml:"baseURL"`
	Token   string `yaml:"token"`

	// NoteScanDepth is how many recent notes the duplicate guard reads.
	NoteScanDepth int `yaml:"noteScanDepth"`
}

// ReviewConfig configures review behavior.
type ReviewConfig struct {
	// Provider selects which configured provider performs reviews.
	Provider string `yaml:"provider"`

	// DefaultBranch is what pushes are compared against.
	DefaultBranch string `yaml:"defaultBranch"`
}

type GitConfig struct {
	RepositoryDir string `yaml:"repositoryDir"`
}

type OutputConfig struct {
	Directory string `yaml:"directory"`
}

type RedactionConfig struct {
	Enabled bool `yaml:"enabled"`
}

// StoreConfig configures the persistence layer.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ObservabilityConfig configures logging and metrics.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures request/response logging.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Level         string `yaml:"level"`         // debug, info, error
	Format        string `yaml:"format"`        // json, human, auto
	RedactAPIKeys bool   `yaml:"redactAPIKeys"` // Redact API keys in logs
}

// MetricsConfig configures performance metrics tracking.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ActiveProvider returns the provider selected for reviews and its config.
func (c Config) ActiveProvider() (string, ProviderConfig, error) {
	name := c.Review.Provider
	if name == "" {
		// Fall back to the single enabled provider, if unambiguous.
		enabled := make([]string, 0, len(c.Providers))
		for pname, p := range c.Providers {
			if p.Enabled {
				enabled = append(enabled, pname)
			}
		}
		if len(enabled) != 1 {
			return "", ProviderConfig{}, fmt.Errorf("review.provider is not set and %d providers are enabled", len(enabled))
		}
		name = enabled[0]
	}
	p, ok := c.Providers[name]
	if !ok {
		return "", ProviderConfig{}, fmt.Errorf("review.provider %q has no providers.%s section", name, name)
	}
	return name, p, nil
}

// Validate checks the parts of the configuration the server cannot run
// without.
func (c Config) Validate() error {
	if c.GitLab.BaseURL == "" {
		return fmt.Errorf("gitlab.baseURL is required")
	}
	if c.GitLab.Token == "" {
		return fmt.Errorf("gitlab.token is required")
	}
	name, p, err := c.ActiveProvider()
	if err != nil {
		return err
	}
	if !p.Enabled {
		return fmt.Errorf("providers.%s is disabled", name)
	}
	if name != "static" && p.APIKey == "" {
		return fmt.Errorf("providers.%s.apiKey is required", name)
	}
	if c.Server.TaskTimeout != "" {
		if _, err := time.ParseDuration(c.Server.TaskTimeout); err != nil {
			return fmt.Errorf("server.taskTimeout: %w", err)
		}
	}
	return nil
}

// Merge combines multiple configuration instances, prioritising the latter ones.
func Merge(configs ...Config) Config {
	result := Config{}
	for _, cfg := range configs {
		result = merge(result, cfg)
	}
	return result
}

func merge(base, overlay Config) Config {
	result := base

	result.HTTP = chooseHTTP(base.HTTP, overlay.HTTP)
	result.Server = chooseServer(base.Server, overlay.Server)
	result.GitLab = chooseGitLab(base.GitLab, overlay.GitLab)
	result.Review = chooseReview(base.Review, overlay.Review)
	result.Git = chooseGit(base.Git, overlay.Git)
	result.Output = chooseOutput(base.Output, overlay.Output)
	result.Redaction = chooseRedaction(base.Redaction, overlay.Redaction)
	result.Store = chooseStore(base.Store, overlay.Store)
	result.Observability = chooseObservability(base.Observability, overlay.Observability)
	result.Providers = mergeProviders(base.Providers, overlay.Providers)

	return result
}

func mergeProviders(base, overlay map[string]ProviderConfig) map[string]ProviderConfig {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	result := make(map[string]ProviderConfig, len(base)+len(overlay))
	for key, value := range base {
		result[key] = value
	}
	for key, value := range overlay {
		result[key] = value
	}
	return result
}

func chooseHTTP(base, overlay HTTPConfig) HTTPConfig {
	if overlay.Timeout != "" || overlay.MaxRetries != 0 || overlay.InitialBackoff != "" || overlay.MaxBackoff != "" || overlay.BackoffMultiplier != 0 {
		return overlay
	}
	return base
}

func chooseServer(base, overlay ServerConfig) ServerConfig {
	result := base
	if overlay.Host != "" {
		result.Host = overlay.Host
	}
	if overlay.Port != 0 {
		result.Port = overlay.Port
	}
	if overlay.WebhookSecret != "" {
		result.WebhookSecret = overlay.WebhookSecret
	}
	if overlay.TaskTimeout != "" {
		result.TaskTimeout = overlay.TaskTimeout
	}
	return result
}

func chooseGitLab(base, overlay GitLabConfig) GitLabConfig {
	result := base
	if overlay.BaseURL != "" {
		result.BaseURL = overlay.BaseURL
	}
	if overlay.Token != "" {
		result.Token = overlay.Token
	}
	if overlay.NoteScanDepth != 0 {
		result.NoteScanDepth = overlay.NoteScanDepth
	}
	return result
}

func chooseReview(base, overlay ReviewConfig) ReviewConfig {
	result := base
	if overlay.Provider != "" {
		result.Provider = overlay.Provider
	}
	if overlay.DefaultBranch != "" {
		result.DefaultBranch = overlay.DefaultBranch
	}
	return result
}

func chooseGit(base, overlay GitConfig) GitConfig {
	if overlay.RepositoryDir != "" {
		return overlay
	}
	return base
}

func chooseOutput(base, overlay OutputConfig) OutputConfig {
	if overlay.Directory != "" {
		return overlay
	}
	return base
}

func chooseRedaction(base, overlay RedactionConfig) RedactionConfig {
	if overlay.Enabled {
		return overlay
	}
	return base
}

func chooseStore(base, overlay StoreConfig) StoreConfig {
	if overlay.Enabled || overlay.Path != "" {
		return overlay
	}
	return base
}

func chooseObservability(base, overlay ObservabilityConfig) ObservabilityConfig {
	result := base

	if overlay.Logging.Enabled || overlay.Logging.Level != "" || overlay.Logging.Format != "" {
		result.Logging = overlay.Logging
	}
	if overlay.Metrics.Enabled {
		result.Metrics = overlay.Metrics
	}

	return result
}
