package llm

import "fmt"

// BaseError is the base error type for completion failures.
type BaseError struct {
	Message string
	Cause   error
}

func (e *BaseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BaseError) Unwrap() error { return e.Cause }

// TransportError covers network, auth, and rate-limit failures between the
// core and the provider. Retryable marks whether another attempt can help.
type TransportError struct {
	BaseError
	StatusCode int
	Retryable  bool
	RetryAfter *float64 // seconds, from a rate-limit response if present
}

// MalformedResponseError marks an empty or truncated provider response.
// The request itself was fine, so a retry may succeed.
type MalformedResponseError struct{ BaseError }

// AbortError marks a completion cancelled by the caller's context.
type AbortError struct{ BaseError }

// ConfigurationError marks an unusable provider setup (missing key, unknown
// provider). Never retryable.
type ConfigurationError struct{ BaseError }

// NewTransportError builds a TransportError classified by HTTP status code.
func NewTransportError(message string, statusCode int, cause error) *TransportError {
	te := &TransportError{
		BaseError:  BaseError{Message: message, Cause: cause},
		StatusCode: statusCode,
	}
	switch statusCode {
	case 400, 401, 403, 404, 413, 422:
		te.Retryable = false
	case 408, 429, 500, 502, 503, 504:
		te.Retryable = true
	default:
		// Unknown failures default to retryable.
		te.Retryable = true
	}
	return te
}

// IsRetryable reports whether another attempt at the same request can
// reasonably be expected to succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *TransportError:
		return e.Retryable
	case *MalformedResponseError:
		return true
	case *AbortError:
		return false
	case *ConfigurationError:
		return false
	default:
		// Unknown errors default to retryable, matching transport behavior.
		return true
	}
}
