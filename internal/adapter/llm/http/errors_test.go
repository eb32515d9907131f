package http

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatusCode(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantType  ErrorType
		retryable bool
	}{
		{"unauthorized", 401, ErrTypeAuthentication, false},
		{"forbidden", 403, ErrTypeAuthentication, false},
		{"not found", 404, ErrTypeNotFound, false},
		{"rate limited", 429, ErrTypeRateLimit, true},
		{"bad request", 400, ErrTypeInvalidRequest, false},
		{"unprocessable", 422, ErrTypeInvalidRequest, false},
		{"server error", 500, ErrTypeServiceUnavailable, true},
		{"bad gateway", 502, ErrTypeServiceUnavailable, true},
		{"unavailable", 503, ErrTypeServiceUnavailable, true},
		{"gateway timeout", 504, ErrTypeServiceUnavailable, true},
		{"teapot", 418, ErrTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromStatusCode("gemini", tt.status, "boom")
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, "gemini", err.Service)
		})
	}
}

func TestErrorMessageIncludesServiceAndType(t *testing.T) {
	err := FromStatusCode("gitlab", 429, "too many requests")
	assert.Contains(t, err.Error(), "gitlab")
	assert.Contains(t, err.Error(), "rate limit exceeded")
	assert.Contains(t, err.Error(), "too many requests")
}

func TestErrorIsMatchesOnType(t *testing.T) {
	err := FromStatusCode("gemini", 429, "slow down")
	target := &Error{Type: ErrTypeRateLimit}

	assert.True(t, errors.Is(err, target))
	assert.False(t, errors.Is(err, &Error{Type: ErrTypeAuthentication}))
}

func TestNewTimeoutErrorIsRetryable(t *testing.T) {
	err := NewTimeoutError("anthropic", "context deadline exceeded")
	assert.Equal(t, ErrTypeTimeout, err.Type)
	assert.True(t, err.IsRetryable())
}

func TestNewContentFilteredErrorIsNotRetryable(t *testing.T) {
	err := NewContentFilteredError("gemini", "blocked")
	assert.Equal(t, ErrTypeContentFiltered, err.Type)
	assert.False(t, err.IsRetryable())
}
