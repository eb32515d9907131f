package observability

import (
	"context"

	llmhttp "github.com/akorchak/reviewbot/internal/adapter/llm/http"
	"github.com/akorchak/reviewbot/internal/usecase/review"
)

// ReviewLogger adapts llmhttp.Logger to the review.Logger port so the
// controller shares the structured logging infrastructure of the HTTP
// clients.
type ReviewLogger struct {
	logger llmhttp.Logger
}

// NewReviewLogger creates a new review logger adapter.
func NewReviewLogger(logger llmhttp.Logger) review.Logger {
	return &ReviewLogger{logger: logger}
}

func (l *ReviewLogger) Info(message string, fields map[string]interface{}) {
	l.logger.LogInfo(context.Background(), message, fields)
}

func (l *ReviewLogger) Warning(message string, fields map[string]interface{}) {
	l.logger.LogWarning(context.Background(), message, fields)
}

func (l *ReviewLogger) Error(message string, err error, fields map[string]interface{}) {
	merged := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	if err != nil {
		merged["error"] = err.Error()
	}
	l.logger.LogWarning(context.Background(), message, merged)
}
