package gateway

import (
	"errors"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{"with message", &APIError{StatusCode: 401, Message: "bad key"}, "gateway error 401: bad key"},
		{"without message", &APIError{StatusCode: 500}, "gateway error 500"},
		{"with request ID", &APIError{StatusCode: 404, Message: "missing", RequestID: "r-1"}, "gateway error 404: missing (request_id: r-1)"},
		{"request ID only", &APIError{StatusCode: 503, RequestID: "r-2"}, "gateway error 503 (request_id: r-2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Is(t *testing.T) {
	tests := []struct {
		status int
		target error
		want   bool
	}{
		{401, ErrUnauthorized, true},
		{403, ErrUnauthorized, true},
		{404, ErrNotFound, true},
		{422, ErrValidation, true},
		{429, ErrRateLimited, true},
		{401, ErrNotFound, false},
		{500, ErrValidation, false},
		{400, ErrUnauthorized, false},
	}

	for _, tt := range tests {
		err := error(&APIError{StatusCode: tt.status})
		if got := errors.Is(err, tt.target); got != tt.want {
			t.Errorf("errors.Is(%d, %v) = %v, want %v", tt.status, tt.target, got, tt.want)
		}
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &NetworkError{Err: inner, URL: "http://x", Attempt: 2}

	if !errors.Is(err, inner) {
		t.Error("NetworkError does not unwrap to its cause")
	}
	if err.Error() != "network error: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
}
