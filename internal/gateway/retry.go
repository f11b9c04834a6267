package gateway

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// Idempotency classifies a gateway call by what a repeat would do.
type Idempotency int

const (
	// Idempotent calls (reads, voids, client tokens) can be repeated after
	// any transient failure.
	Idempotent Idempotency = iota
	// Creating calls (sales, customers, payment methods) move money or
	// write vault records. After a lost response the gateway may already
	// have acted, so they are repeated only when the gateway refused the
	// request outright.
	Creating
)

func (i Idempotency) String() string {
	if i == Creating {
		return "creating"
	}
	return "idempotent"
}

// RetryConfig configures retries of failed gateway calls.
type RetryConfig struct {
	// MaxRetries is the number of repeats after the first attempt.
	MaxRetries int
	// BaseDelay is the wait before the first repeat.
	BaseDelay time.Duration
	// MaxDelay caps every wait, including a server's Retry-After.
	MaxDelay time.Duration
	// Multiplier grows the wait after each attempt.
	Multiplier float64
	// Jitter randomizes waits by up to this fraction (0.0 to 1.0).
	Jitter float64
	// RetryableOn lists statuses worth repeating for idempotent calls.
	RetryableOn func(statusCode int) bool
	// RefusedOn lists statuses that guarantee the gateway did not act on
	// the request. Only these are repeated for creating calls.
	RefusedOn func(statusCode int) bool
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.2,
		RetryableOn: func(statusCode int) bool {
			switch statusCode {
			case http.StatusRequestTimeout, http.StatusTooManyRequests,
				http.StatusInternalServerError, http.StatusBadGateway,
				http.StatusServiceUnavailable, http.StatusGatewayTimeout:
				return true
			default:
				return false
			}
		},
		RefusedOn: func(statusCode int) bool {
			return statusCode == http.StatusTooManyRequests
		},
	}
}

// ShouldRetry reports whether a call of the given class is repeated after
// attempt failed with statusCode. A status of zero is a network failure: the
// request may have reached the gateway, so creating calls stop there.
func (r *RetryConfig) ShouldRetry(attempt, statusCode int, class Idempotency) bool {
	if attempt >= r.MaxRetries {
		return false
	}
	if class == Creating {
		return statusCode != 0 && r.RefusedOn != nil && r.RefusedOn(statusCode)
	}
	if statusCode == 0 {
		return true
	}
	return r.RetryableOn != nil && r.RetryableOn(statusCode)
}

// Delay returns the wait before repeating after attempt. A positive
// retryAfter from the gateway replaces the backoff. The result never
// exceeds MaxDelay.
func (r *RetryConfig) Delay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return min(retryAfter, r.MaxDelay)
	}

	delay := min(float64(r.BaseDelay)*math.Pow(r.Multiplier, float64(attempt)), float64(r.MaxDelay))
	if r.Jitter > 0 {
		jitterAmount := delay * r.Jitter
		delay = min(delay-jitterAmount+rand.Float64()*2*jitterAmount, float64(r.MaxDelay))
	}
	return time.Duration(delay)
}

// Wait sleeps for Delay or until ctx is done.
func (r *RetryConfig) Wait(ctx context.Context, attempt int, retryAfter time.Duration) error {
	timer := time.NewTimer(r.Delay(attempt, retryAfter))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryAfter reads a Retry-After header given in seconds. HTTP dates are
// not used by the gateway and count as absent.
func retryAfter(resp *http.Response) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
