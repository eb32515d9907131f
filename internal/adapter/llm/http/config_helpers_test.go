package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/akorchak/reviewbot/internal/config"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		name     string
		override *string
		global   string
		fallback time.Duration
		want     time.Duration
	}{
		{"provider override wins", strPtr("90s"), "60s", 30 * time.Second, 90 * time.Second},
		{"global when no override", nil, "45s", 30 * time.Second, 45 * time.Second},
		{"fallback when nothing set", nil, "", 30 * time.Second, 30 * time.Second},
		{"malformed override falls through", strPtr("soon"), "45s", 30 * time.Second, 45 * time.Second},
		{"negative override falls through", strPtr("-5s"), "45s", 30 * time.Second, 45 * time.Second},
		{"empty override falls through", strPtr(""), "45s", 30 * time.Second, 45 * time.Second},
		{"negative fallback normalized", nil, "", -1 * time.Second, 60 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimeout(tt.override, tt.global, tt.fallback)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildRetryConfig(t *testing.T) {
	httpCfg := config.HTTPConfig{
		MaxRetries:        5,
		InitialBackoff:    "1s",
		MaxBackoff:        "16s",
		BackoffMultiplier: 3.0,
	}

	t.Run("uses global config", func(t *testing.T) {
		rc := BuildRetryConfig(config.ProviderConfig{}, httpCfg)

		assert.Equal(t, 5, rc.MaxRetries)
		assert.Equal(t, 1*time.Second, rc.InitialBackoff)
		assert.Equal(t, 16*time.Second, rc.MaxBackoff)
		assert.Equal(t, 3.0, rc.Multiplier)
	})

	t.Run("provider overrides win", func(t *testing.T) {
		provider := config.ProviderConfig{
			MaxRetries:     intPtr(1),
			InitialBackoff: strPtr("500ms"),
			MaxBackoff:     strPtr("4s"),
		}
		rc := BuildRetryConfig(provider, httpCfg)

		assert.Equal(t, 1, rc.MaxRetries)
		assert.Equal(t, 500*time.Millisecond, rc.InitialBackoff)
		assert.Equal(t, 4*time.Second, rc.MaxBackoff)
	})

	t.Run("multiplier below one normalized", func(t *testing.T) {
		rc := BuildRetryConfig(config.ProviderConfig{}, config.HTTPConfig{BackoffMultiplier: 0.5})
		assert.Equal(t, 2.0, rc.Multiplier)
	})

	t.Run("empty config falls back to defaults", func(t *testing.T) {
		rc := BuildRetryConfig(config.ProviderConfig{}, config.HTTPConfig{})

		assert.Equal(t, 0, rc.MaxRetries)
		assert.Equal(t, 2*time.Second, rc.InitialBackoff)
		assert.Equal(t, 32*time.Second, rc.MaxBackoff)
	})
}
