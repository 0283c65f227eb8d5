package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kislikjeka/agrovest/pkg/logger"
)

const (
	defaultBaseURL = "https://api.paystack.co"
	requestTimeout = 30 * time.Second
	maxRetries     = 3

	breakerMaxFailures = 5
	breakerCooldown    = 30 * time.Second
)

// Client is an HTTP client for the Paystack REST API
type Client struct {
	secretKey      string
	httpClient     *http.Client
	baseURL        string
	initialBackoff time.Duration
	breaker        *CircuitBreaker
	logger         *logger.Logger
}

// NewClient creates a new Paystack API client
func NewClient(secretKey string, log *logger.Logger) *Client {
	return &Client{
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		baseURL:        defaultBaseURL,
		initialBackoff: time.Second,
		breaker:        NewCircuitBreaker(breakerMaxFailures, breakerCooldown),
		logger:         log.WithField("component", "paystack"),
	}
}

// SetBaseURL overrides the default base URL (useful for testing)
func (c *Client) SetBaseURL(u string) {
	if u != "" {
		c.baseURL = u
	}
}

// SetBackoff overrides the first retry delay (useful for testing)
func (c *Client) SetBackoff(d time.Duration) {
	c.initialBackoff = d
}

// APIError is a non-2xx answer from Paystack
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Paystack API error: status %d: %s", e.StatusCode, e.Message)
}

// IsClientError reports whether Paystack rejected the request itself
// (4xx other than 429), as opposed to being unreachable or failing
func IsClientError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests
}

// RateLimitError represents a rate limit error from the Paystack API
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
}

// IsRateLimitError checks if an error is (or wraps) a rate limit error
func IsRateLimitError(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// doRequest guards send with the circuit breaker. Answers where Paystack
// rejected the request itself count as the API being up.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body, out interface{}) error {
	if !c.breaker.CanAttempt() {
		c.logger.Warn("circuit open, skipping request", "path", path)
		return ErrCircuitOpen
	}

	err := c.send(ctx, method, path, params, body, out)
	switch {
	case err == nil, IsClientError(err):
		c.breaker.RecordSuccess()
	case errors.Is(err, context.Canceled):
	default:
		c.breaker.RecordFailure()
	}
	return err
}

// send performs an authenticated request and decodes the envelope into
// out. It retries up to maxRetries times with exponential backoff on 429.
func (c *Client) send(ctx context.Context, method, path string, params url.Values, body, out interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	backoff := c.initialBackoff
	for attempt := 0; attempt <= maxRetries; attempt++ {
		c.logger.Debug("API request", "method", method, "path", path, "attempt", attempt)
		attemptStart := time.Now()

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.secretKey)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to execute request: %w", err)
		}

		raw, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("failed to read response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt == maxRetries {
				c.logger.Error("rate limit exhausted", "attempts", maxRetries+1)
				return &RateLimitError{
					RetryAfter: backoff,
					Message:    "Paystack API rate limit exceeded after retries",
				}
			}
			c.logger.Warn("rate limited, retrying", "attempt", attempt, "backoff_ms", backoff.Milliseconds())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
				continue
			}
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 300 {
				return &APIError{StatusCode: resp.StatusCode, Message: string(raw)}
			}
			return fmt.Errorf("failed to decode Paystack response: %w", err)
		}

		if resp.StatusCode >= 300 || !env.Status {
			c.logger.Warn("API error", "status_code", resp.StatusCode, "message", env.Message)
			code := resp.StatusCode
			if code < 300 {
				code = http.StatusBadRequest
			}
			return &APIError{StatusCode: code, Message: env.Message}
		}

		c.logger.Debug("API response", "status_code", resp.StatusCode, "duration_ms", time.Since(attemptStart).Milliseconds())
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode Paystack data: %w", err)
		}
		return nil
	}

	return fmt.Errorf("Paystack API: exhausted retries")
}

// InitializeTransaction starts a checkout
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeData, error) {
	var data InitializeData
	if err := c.doRequest(ctx, http.MethodPost, "/transaction/initialize", nil, req, &data); err != nil {
		return nil, fmt.Errorf("InitializeTransaction failed: %w", err)
	}
	return &data, nil
}

// VerifyTransaction fetches the state of a transaction by reference
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyData, error) {
	var data VerifyData
	path := "/transaction/verify/" + url.PathEscape(reference)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, nil, &data); err != nil {
		return nil, fmt.Errorf("VerifyTransaction failed: %w", err)
	}
	return &data, nil
}

// ResolveAccount looks up the holder of a bank account
func (c *Client) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*ResolveData, error) {
	params := url.Values{}
	params.Set("account_number", accountNumber)
	params.Set("bank_code", bankCode)

	var data ResolveData
	if err := c.doRequest(ctx, http.MethodGet, "/bank/resolve", params, nil, &data); err != nil {
		return nil, fmt.Errorf("ResolveAccount failed: %w", err)
	}
	return &data, nil
}
