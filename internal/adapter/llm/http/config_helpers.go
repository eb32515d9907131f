package http

import (
	"time"

	"github.com/akorchak/reviewbot/internal/config"
)

// ParseTimeout resolves a timeout with fallback chain: provider override >
// global HTTP config > default. Negative and malformed durations fall
// through to the next source.
func ParseTimeout(providerOverride *string, globalTimeout string, defaultVal time.Duration) time.Duration {
	if providerOverride != nil && *providerOverride != "" {
		if d, err := time.ParseDuration(*providerOverride); err == nil && d >= 0 {
			return d
		}
	}
	if globalTimeout != "" {
		if d, err := time.ParseDuration(globalTimeout); err == nil && d >= 0 {
			return d
		}
	}
	if defaultVal < 0 {
		return 60 * time.Second
	}
	return defaultVal
}

// BuildRetryConfig creates a RetryConfig from provider + global HTTP config.
func BuildRetryConfig(provider config.ProviderConfig, httpCfg config.HTTPConfig) RetryConfig {
	maxRetries := httpCfg.MaxRetries
	if provider.MaxRetries != nil {
		maxRetries = *provider.MaxRetries
	}

	multiplier := httpCfg.BackoffMultiplier
	if multiplier <= 1 {
		multiplier = 2.0
	}

	return RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: parseDuration(provider.InitialBackoff, httpCfg.InitialBackoff, 2*time.Second),
		MaxBackoff:     parseDuration(provider.MaxBackoff, httpCfg.MaxBackoff, 32*time.Second),
		Multiplier:     multiplier,
	}
}

func parseDuration(override *string, global string, defaultVal time.Duration) time.Duration {
	if override != nil && *override != "" {
		if d, err := time.ParseDuration(*override); err == nil && d >= 0 {
			return d
		}
	}
	if global != "" {
		if d, err := time.ParseDuration(global); err == nil && d >= 0 {
			return d
		}
	}
	if defaultVal < 0 {
		return 2 * time.Second
	}
	return defaultVal
}
