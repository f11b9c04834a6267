// Package gateway is a JSON client for the payment gateway the merchant
// server talks to. It covers the calls the demo flows need: client tokens,
// customers, sales, voids and vaulted payment methods.
//
// # Authentication
//
// Every request carries the merchant's public and private API keys as HTTP
// basic auth and is sent under /merchants/<merchant id>.
//
// # Retry Behavior
//
// Network failures and these status codes are retried with exponential
// backoff and jitter, up to 3 times by default:
//
//   - 408 Request Timeout
//   - 429 Too Many Requests
//   - 500, 502, 503, 504
//
// # Error Handling
//
// HTTP errors are returned as [*APIError] and match these sentinels with
// errors.Is:
//
//   - [ErrUnauthorized]: 401 or 403.
//   - [ErrNotFound]: 404.
//   - [ErrValidation]: 422.
//   - [ErrRateLimited]: 429.
//
// A declined sale or a refused vault request is not an error: the call
// succeeds and the returned result has Success set to false.
package gateway
