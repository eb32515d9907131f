package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// Logger provides structured logging for remote calls and controller events.
type Logger interface {
	// LogRequest logs an outgoing API request (API key redacted).
	LogRequest(ctx context.Context, req RequestLog)

	// LogResponse logs an API response with timing and token info.
	LogResponse(ctx context.Context, resp ResponseLog)

	// LogError logs an API error.
	LogError(ctx context.Context, err ErrorLog)

	// LogInfo logs an informational message with structured fields.
	LogInfo(ctx context.Context, message string, fields map[string]interface{})

	// LogWarning logs a warning message with structured fields.
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// RequestLog contains request information for logging.
type RequestLog struct {
	Service     string
	Model       string
	Timestamp   time.Time
	PromptChars int
	APIKey      string // redacted to last 4 chars before output
}

// ResponseLog contains response information for logging.
type ResponseLog struct {
	Service      string
	Model        string
	Timestamp    time.Time
	Duration     time.Duration
	TokensIn     int
	TokensOut    int
	StatusCode   int
	FinishReason string
}

// ErrorLog contains error information for logging.
type ErrorLog struct {
	Service    string
	Model      string
	Timestamp  time.Time
	Duration   time.Duration
	Error      error
	ErrorType  ErrorType
	StatusCode int
	Retryable  bool
}

// LogLevel defines the logging verbosity level.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelError
)

// ParseLogLevel maps a config string onto a LogLevel, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// LogFormat defines the output format for logs.
type LogFormat int

const (
	LogFormatHuman LogFormat = iota
	LogFormatJSON
)

// DefaultLogger writes logs through the standard library logger.
type DefaultLogger struct {
	level      LogLevel
	format     LogFormat
	redactKeys bool
}

// NewDefaultLogger creates a logger with the specified config.
func NewDefaultLogger(level LogLevel, format LogFormat, redactKeys bool) *DefaultLogger {
	return &DefaultLogger{
		level:      level,
		format:     format,
		redactKeys: redactKeys,
	}
}

// LogRequest logs an API request at debug level.
func (l *DefaultLogger) LogRequest(ctx context.Context, req RequestLog) {
	if l.level > LogLevelDebug {
		return
	}

	redacted := l.RedactAPIKey(req.APIKey)
	if l.format == LogFormatJSON {
		l.emitJSON("debug", "request", map[string]interface{}{
			"service":      req.Service,
			"model":        req.Model,
			"timestamp":    req.Timestamp.Format(time.RFC3339),
			"prompt_chars": req.PromptChars,
			"api_key":      redacted,
		})
		return
	}
	log.Printf("[DEBUG] %s/%s: request sent (prompt=%d chars, key=%s)",
		req.Service, req.Model, req.PromptChars, redacted)
}

// LogResponse logs an API response at info level.
func (l *DefaultLogger) LogResponse(ctx context.Context, resp ResponseLog) {
	if l.level > LogLevelInfo {
		return
	}

	if l.format == LogFormatJSON {
		l.emitJSON("info", "response", map[string]interface{}{
			"service":       resp.Service,
			"model":         resp.Model,
			"timestamp":     resp.Timestamp.Format(time.RFC3339),
			"duration_ms":   resp.Duration.Milliseconds(),
			"tokens_in":     resp.TokensIn,
			"tokens_out":    resp.TokensOut,
			"status_code":   resp.StatusCode,
			"finish_reason": resp.FinishReason,
		})
		return
	}
	log.Printf("[INFO] %s/%s: response received (duration=%.1fs, tokens=%d/%d)",
		resp.Service, resp.Model, resp.Duration.Seconds(), resp.TokensIn, resp.TokensOut)
}

// LogError logs an API error.
func (l *DefaultLogger) LogError(ctx context.Context, e ErrorLog) {
	if l.level > LogLevelError {
		return
	}

	if l.format == LogFormatJSON {
		l.emitJSON("error", "error", map[string]interface{}{
			"service":     e.Service,
			"model":       e.Model,
			"timestamp":   e.Timestamp.Format(time.RFC3339),
			"duration_ms": e.Duration.Milliseconds(),
			"error":       e.Error.Error(),
			"error_type":  e.ErrorType.String(),
			"status_code": e.StatusCode,
			"retryable":   e.Retryable,
		})
		return
	}

	retryableStr := "non-retryable"
	if e.Retryable {
		retryableStr = "retryable"
	}
	log.Printf("[ERROR] %s/%s: call failed (status=%d, %s): %v",
		e.Service, e.Model, e.StatusCode, retryableStr, e.Error)
}

// LogInfo logs an informational message with structured fields.
func (l *DefaultLogger) LogInfo(ctx context.Context, message string, fields map[string]interface{}) {
	if l.level > LogLevelInfo {
		return
	}
	if l.format == LogFormatJSON {
		payload := map[string]interface{}{"message": message}
		for k, v := range fields {
			payload[k] = v
		}
		l.emitJSON("info", "event", payload)
		return
	}
	log.Printf("[INFO] %s%s", message, formatFields(fields))
}

// LogWarning logs a warning message with structured fields.
func (l *DefaultLogger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {
	if l.level > LogLevelError {
		return
	}
	if l.format == LogFormatJSON {
		payload := map[string]interface{}{"message": message}
		for k, v := range fields {
			payload[k] = v
		}
		l.emitJSON("warning", "event", payload)
		return
	}
	log.Printf("[WARNING] %s%s", message, formatFields(fields))
}

// RedactAPIKey shows only the last 4 characters of an API key.
func (l *DefaultLogger) RedactAPIKey(key string) string {
	if !l.redactKeys {
		return key
	}
	if len(key) <= 4 {
		return "[REDACTED]"
	}
	return fmt.Sprintf("[REDACTED-%s]", key[len(key)-4:])
}

func (l *DefaultLogger) emitJSON(level, kind string, fields map[string]interface{}) {
	payload := map[string]interface{}{"level": level, "type": kind}
	for k, v := range fields {
		payload[k] = v
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[ERROR] failed to encode log entry: %v", err)
		return
	}
	log.Print(string(encoded))
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
