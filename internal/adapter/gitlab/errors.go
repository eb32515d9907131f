package gitlab

import (
	"encoding/json"
	"fmt"
	"net/http"

	llmhttp "github.com/akorchak/reviewbot/internal/adapter/llm/http"
)

const serviceName = "gitlab"

// MapHTTPError maps GitLab API status codes to typed llmhttp.Error so the
// shared retry logic applies to gateway calls too.
func MapHTTPError(statusCode int, body []byte) *llmhttp.Error {
	message := parseErrorMessage(statusCode, body)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeAuthentication,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  false,
			Service:    serviceName,
		}
	case http.StatusTooManyRequests:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeRateLimit,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  true,
			Service:    serviceName,
		}
	case http.StatusNotFound:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeNotFound,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  false,
			Service:    serviceName,
		}
	case http.StatusConflict, http.StatusUnprocessableEntity, http.StatusBadRequest,
		http.StatusMethodNotAllowed:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeInvalidRequest,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  false,
			Service:    serviceName,
		}
	default:
		return llmhttp.FromStatusCode(serviceName, statusCode, message)
	}
}

// parseErrorMessage pulls a readable message out of a GitLab error body.
// GitLab uses both {"message": ...} and {"error": ...}, and "message" may be
// a string, a list, or an object.
func parseErrorMessage(statusCode int, body []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if len(payload.Message) > 0 {
			var s string
			if json.Unmarshal(payload.Message, &s) == nil && s != "" {
				return s
			}
			return string(payload.Message)
		}
	}
	if len(body) > 0 {
		return fmt.Sprintf("HTTP %d: %s", statusCode, llmhttp.TruncateForLogging(string(body)))
	}
	return fmt.Sprintf("HTTP %d", statusCode)
}
