package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors matched by APIError.Is.
var (
	// ErrUnauthorized indicates the API key pair is invalid.
	ErrUnauthorized = errors.New("invalid gateway credentials")
	// ErrNotFound indicates the customer, transaction or merchant does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrValidation indicates the gateway rejected the request parameters.
	ErrValidation = errors.New("validation failed")
	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrMissingConfig is returned by New when a required field is empty.
	ErrMissingConfig = errors.New("gateway config incomplete")
	// ErrUnknownEnvironment is returned for an environment with no known URL.
	ErrUnknownEnvironment = errors.New("unknown gateway environment")
)

// APIError represents an HTTP error from the gateway.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		if e.Message != "" {
			return fmt.Sprintf("gateway error %d: %s (request_id: %s)", e.StatusCode, e.Message, e.RequestID)
		}
		return fmt.Sprintf("gateway error %d (request_id: %s)", e.StatusCode, e.RequestID)
	}
	if e.Message != "" {
		return fmt.Sprintf("gateway error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway error %d", e.StatusCode)
}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return target == ErrUnauthorized
	case http.StatusNotFound:
		return target == ErrNotFound
	case http.StatusUnprocessableEntity:
		return target == ErrValidation
	case http.StatusTooManyRequests:
		return target == ErrRateLimited
	}
	return false
}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
