package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateForLogging(t *testing.T) {
	t.Run("short response passes through", func(t *testing.T) {
		assert.Equal(t, "short", TruncateForLogging("short"))
	})

	t.Run("long response truncated with indicator", func(t *testing.T) {
		long := strings.Repeat("x", MaxLoggedResponseLength+100)
		got := TruncateForLogging(long)

		assert.True(t, strings.HasPrefix(got, strings.Repeat("x", MaxLoggedResponseLength)))
		assert.Contains(t, got, "truncated")
		assert.Contains(t, got, "300 bytes")
	})

	t.Run("exact boundary not truncated", func(t *testing.T) {
		exact := strings.Repeat("y", MaxLoggedResponseLength)
		assert.Equal(t, exact, TruncateForLogging(exact))
	})
}

func TestRedactURLSecrets(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "gemini key parameter",
			in:   "Post https://generativelanguage.googleapis.com/v1beta/models/x:generateContent?key=AIzaSyABC123: EOF",
			want: "Post https://generativelanguage.googleapis.com/v1beta/models/x:generateContent?key=[REDACTED]: EOF",
		},
		{
			name: "private token parameter",
			in:   "GET https://gitlab.example.com/api/v4/projects?private_token=glpat-secret failed",
			want: "GET https://gitlab.example.com/api/v4/projects?private_token=[REDACTED] failed",
		},
		{
			name: "no secrets untouched",
			in:   "connection refused",
			want: "connection refused",
		},
		{
			name: "empty string",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactURLSecrets(tt.in))
		})
	}
}
