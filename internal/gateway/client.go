package gateway

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTimeout is the HTTP timeout used when Config.HTTPClient is nil.
const DefaultTimeout = 60 * time.Second

// Config holds the merchant credentials and transport settings.
type Config struct {
	Environment Environment
	// BaseURL overrides the environment's API root.
	BaseURL    string
	MerchantID string
	PublicKey  string
	PrivateKey string

	HTTPClient *http.Client
	Retry      *RetryConfig
	Logger     *logrus.Entry
}

// Client calls the payment gateway for one merchant. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	merchantID string
	publicKey  string
	privateKey string
	httpClient *http.Client
	retry      *RetryConfig
	logger     *logrus.Entry
}

// New creates a gateway client.
func New(cfg Config) (*Client, error) {
	var missing []string
	if cfg.MerchantID == "" {
		missing = append(missing, "merchant_id")
	}
	if cfg.PublicKey == "" {
		missing = append(missing, "public_key")
	}
	if cfg.PrivateKey == "" {
		missing = append(missing, "private_key")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		u, ok := cfg.Environment.BaseURL()
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEnvironment, cfg.Environment)
		}
		baseURL = u
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		merchantID: cfg.MerchantID,
		publicKey:  cfg.PublicKey,
		privateKey: cfg.PrivateKey,
		httpClient: cfg.HTTPClient,
		retry:      cfg.Retry,
		logger:     cfg.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if c.retry == nil {
		c.retry = DefaultRetryConfig()
	}
	if c.logger == nil {
		c.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	c.logger = c.logger.WithFields(logrus.Fields{"component": "gateway", "merchant_id": cfg.MerchantID})
	return c, nil
}

// MerchantID returns the merchant the client acts for.
func (c *Client) MerchantID() string {
	return c.merchantID
}

// idempotencyKeyHeader carries a per-call key on creating requests so the
// gateway can recognise a repeat of a request it already processed.
const idempotencyKeyHeader = "Idempotency-Key"

func newIdempotencyKey() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// do sends a JSON request under /merchants/<id> and decodes the response
// into result. Failures are repeated as the RetryConfig allows for class.
func (c *Client) do(ctx context.Context, operation, method, path string, class Idempotency, body, result any) (err error) {
	defer func() {
		RequestsCounter.WithLabelValues(operation, requestStatus(err)).Inc()
	}()

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var key string
	if class == Creating {
		if key, err = newIdempotencyKey(); err != nil {
			return fmt.Errorf("failed to create idempotency key: %w", err)
		}
	}

	url := c.baseURL + "/merchants/" + c.merchantID + path
	logger := c.logger.WithFields(logrus.Fields{"operation": operation, "method": method, "class": class})

	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.SetBasicAuth(c.publicKey, c.privateKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-ApiVersion", apiVersion)
		if key != "" {
			req.Header.Set(idempotencyKeyHeader, key)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !c.retry.ShouldRetry(attempt, 0, class) {
				return &NetworkError{Err: err, URL: url, Attempt: attempt + 1}
			}
			logger.WithError(err).WithField("attempt", attempt+1).Warnln("Gateway request failed, retrying")
			if err := c.retry.Wait(ctx, attempt, 0); err != nil {
				return err
			}
			continue
		}

		logger.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"latency": time.Since(start),
		}).Debugln("Gateway response")

		if resp.StatusCode >= 400 && c.retry.ShouldRetry(attempt, resp.StatusCode, class) {
			wait := retryAfter(resp)
			resp.Body.Close()
			logger.WithFields(logrus.Fields{"status": resp.StatusCode, "attempt": attempt + 1}).Warnln("Gateway refused request, retrying")
			if err := c.retry.Wait(ctx, attempt, wait); err != nil {
				return err
			}
			continue
		}

		return decodeResponse(resp, result)
	}
}

func decodeResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp)
	}
	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error     string `json:"error"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: resp.Header.Get("X-Request-Id")}
	if err := json.Unmarshal(body, &errResp); err == nil {
		apiErr.Message = errResp.Message
		if apiErr.Message == "" {
			apiErr.Message = errResp.Error
		}
		if errResp.RequestID != "" {
			apiErr.RequestID = errResp.RequestID
		}
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}

func requestStatus(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return strconv.Itoa(apiErr.StatusCode)
	}
	return "error"
}
