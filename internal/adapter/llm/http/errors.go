package http

import "fmt"

// ErrorType categorizes a remote-call failure. The same taxonomy serves the
// oracle providers and the GitLab gateway client.
type ErrorType int

const (
	ErrTypeAuthentication ErrorType = iota
	ErrTypeRateLimit
	ErrTypeServiceUnavailable
	ErrTypeInvalidRequest
	ErrTypeNotFound
	ErrTypeTimeout
	ErrTypeContentFiltered
	ErrTypeUnknown
)

// String returns a human-readable description of the error type.
func (e ErrorType) String() string {
	switch e {
	case ErrTypeAuthentication:
		return "authentication error"
	case ErrTypeRateLimit:
		return "rate limit exceeded"
	case ErrTypeServiceUnavailable:
		return "service unavailable"
	case ErrTypeInvalidRequest:
		return "invalid request"
	case ErrTypeNotFound:
		return "not found"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeContentFiltered:
		return "content filtered"
	default:
		return "unknown error"
	}
}

// Error is a typed remote-call error with retry semantics attached.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Retryable  bool
	Service    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s (status: %d)", e.Service, e.Type.String(), e.Message, e.StatusCode)
}

// Is matches errors of the same type, enabling errors.Is comparisons
// against sentinel *Error values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsRetryable reports whether retrying the call can succeed.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// FromStatusCode maps an HTTP status code to a typed error. Rate limiting
// and server-side failures are retryable, everything else is not.
func FromStatusCode(service string, statusCode int, message string) *Error {
	e := &Error{
		Message:    message,
		StatusCode: statusCode,
		Service:    service,
	}
	switch statusCode {
	case 401, 403:
		e.Type = ErrTypeAuthentication
	case 404:
		e.Type = ErrTypeNotFound
	case 429:
		e.Type = ErrTypeRateLimit
		e.Retryable = true
	case 400, 422:
		e.Type = ErrTypeInvalidRequest
	case 500, 502, 503, 504:
		e.Type = ErrTypeServiceUnavailable
		e.Retryable = true
	default:
		e.Type = ErrTypeUnknown
	}
	return e
}

// NewTimeoutError creates a retryable timeout error for a transport failure.
func NewTimeoutError(service, message string) *Error {
	return &Error{
		Type:      ErrTypeTimeout,
		Message:   message,
		Retryable: true,
		Service:   service,
	}
}

// NewContentFilteredError creates an error for an oracle response blocked by
// the provider's safety filters.
func NewContentFilteredError(service, message string) *Error {
	return &Error{
		Type:       ErrTypeContentFiltered,
		Message:    message,
		StatusCode: 400,
		Service:    service,
	}
}
