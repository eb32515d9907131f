package observability_test

import (
	"bytes"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmhttp "github.com/akorchak/reviewbot/internal/adapter/llm/http"
	"github.com/akorchak/reviewbot/internal/adapter/observability"
	"github.com/akorchak/reviewbot/internal/config"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestReviewLogger_Info(t *testing.T) {
	buf := captureLog(t)

	llmLogger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	reviewLogger := observability.NewReviewLogger(llmLogger)

	reviewLogger.Info("review comment posted", map[string]interface{}{
		"subject": "project 42 MR !7",
		"verdict": "APPROVE",
	})

	output := buf.String()
	assert.Contains(t, output, "[INFO]")
	assert.Contains(t, output, "review comment posted")
	assert.Contains(t, output, "subject=project 42 MR !7")
	assert.Contains(t, output, "verdict=APPROVE")
}

func TestReviewLogger_Warning(t *testing.T) {
	buf := captureLog(t)

	llmLogger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	reviewLogger := observability.NewReviewLogger(llmLogger)

	reviewLogger.Warning("note scan for duplicates failed, continuing", map[string]interface{}{
		"error": "connection refused",
	})

	output := buf.String()
	assert.Contains(t, output, "[WARNING]")
	assert.Contains(t, output, "note scan for duplicates failed")
	assert.Contains(t, output, "error=connection refused")
}

func TestReviewLogger_ErrorMergesErrField(t *testing.T) {
	buf := captureLog(t)

	llmLogger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	reviewLogger := observability.NewReviewLogger(llmLogger)

	reviewLogger.Error("analysis failed", errors.New("rate limited"), map[string]interface{}{
		"subject": "42!7",
	})

	output := buf.String()
	assert.Contains(t, output, "analysis failed")
	assert.Contains(t, output, "error=rate limited")
	assert.Contains(t, output, "subject=42!7")
}

func TestBuildLoggerFormats(t *testing.T) {
	require.NotNil(t, observability.BuildLogger(config.LoggingConfig{Level: "info", Format: "json"}))
	require.NotNil(t, observability.BuildLogger(config.LoggingConfig{Level: "debug", Format: "human"}))
	require.NotNil(t, observability.BuildLogger(config.LoggingConfig{Format: "auto"}))
}

func TestBuildMetrics(t *testing.T) {
	assert.Nil(t, observability.BuildMetrics(config.MetricsConfig{Enabled: false}))
	assert.NotNil(t, observability.BuildMetrics(config.MetricsConfig{Enabled: true}))
}
