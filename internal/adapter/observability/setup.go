package observability

import (
	"os"
	"strings"

	"golang.org/x/term"

	llmhttp "github.com/akorchak/reviewbot/internal/adapter/llm/http"
	"github.com/akorchak/reviewbot/internal/config"
)

// BuildLogger constructs the process logger from config. Format "auto"
// picks human output on a terminal and JSON otherwise, which is what log
// collectors expect from a deployed service.
func BuildLogger(cfg config.LoggingConfig) llmhttp.Logger {
	level := llmhttp.ParseLogLevel(cfg.Level)
	format := resolveFormat(cfg.Format)
	return llmhttp.NewDefaultLogger(level, format, cfg.RedactAPIKeys)
}

func resolveFormat(format string) llmhttp.LogFormat {
	switch strings.ToLower(format) {
	case "json":
		return llmhttp.LogFormatJSON
	case "human":
		return llmhttp.LogFormatHuman
	default:
		if term.IsTerminal(int(os.Stderr.Fd())) {
			return llmhttp.LogFormatHuman
		}
		return llmhttp.LogFormatJSON
	}
}

// BuildMetrics constructs the metrics sink, or nil when disabled.
func BuildMetrics(cfg config.MetricsConfig) llmhttp.Metrics {
	if !cfg.Enabled {
		return nil
	}
	return llmhttp.NewDefaultMetrics()
}
