package http

import (
	"fmt"
	"regexp"
)

// MaxLoggedResponseLength caps how much oracle response text reaches the
// logs. Responses carry user source code; log aggregators should not.
const MaxLoggedResponseLength = 200

// TruncateForLogging returns the first MaxLoggedResponseLength characters of
// a response plus a truncation indicator.
func TruncateForLogging(response string) string {
	if len(response) <= MaxLoggedResponseLength {
		return response
	}
	return response[:MaxLoggedResponseLength] + fmt.Sprintf("... [truncated, total length=%d bytes]", len(response))
}

var urlSecretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(key)=[^&"\s]+`),
	regexp.MustCompile(`(apiKey)=[^&"\s]+`),
	regexp.MustCompile(`(api_key)=[^&"\s]+`),
	regexp.MustCompile(`(private_token)=[^&"\s]+`),
	regexp.MustCompile(`(token)=[^&"\s]+`),
	regexp.MustCompile(`(access_token)=[^&"\s]+`),
}

// RedactURLSecrets redacts API keys and tokens from URLs embedded in error
// messages. The Gemini endpoint carries its key as a query parameter, so a
// transport error would otherwise leak it verbatim.
func RedactURLSecrets(text string) string {
	if text == "" {
		return text
	}
	result := text
	for _, re := range urlSecretPatterns {
		result = re.ReplaceAllString(result, "$1=[REDACTED]")
	}
	return result
}
