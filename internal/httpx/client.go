// Package httpx provides HTTP client infrastructure for talking to remote
// video platforms, with rate limiting, circuit breaking, and optional retry.
package httpx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"ptsync/internal/retry"
)

// Client wraps an HTTP client with rate limit handling and a circuit breaker.
// The retry budget is configurable; callers that must not retry (one attempt
// per mutation, re-run the whole sync instead) set Retry.MaxRetries to 0.
type Client struct {
	base           *http.Client
	config         *Config
	rateLimiter    *RateLimiter
	circuitBreaker *CircuitBreaker
}

// Config holds HTTP client configuration including retry and rate limit settings.
type Config struct {
	// Timeout for individual HTTP requests
	Timeout time.Duration

	// Retry configuration
	Retry retry.Config

	// User agent for HTTP requests
	UserAgent string

	// Rate limiter configuration
	RateLimiter RateLimiterConfig

	// Circuit breaker configuration
	CircuitBreaker CircuitBreakerConfig

	// Connection pool configuration
	Transport TransportConfig
}

// TransportConfig configures the HTTP transport (connection pooling).
type TransportConfig struct {
	// MaxIdleConns is the maximum number of idle connections across all hosts.
	// Default: 20
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host.
	// Default: 10
	MaxIdleConnsPerHost int

	// MaxConnsPerHost is the maximum concurrent connections per host.
	// Default: 20
	MaxConnsPerHost int

	// IdleConnTimeout is the maximum amount of time an idle connection can remain open.
	// Default: 90 seconds
	IdleConnTimeout time.Duration

	// ForceAttemptHTTP2 forces HTTP/2 for connections to servers that don't explicitly support it.
	// Default: true
	ForceAttemptHTTP2 bool
}

// DefaultConfig returns sensible defaults for HTTP client configuration.
func DefaultConfig() *Config {
	cbConfig := DefaultCircuitBreakerConfig()
	cbConfig.IsTransientError = IsTransientHTTPError
	return &Config{
		Timeout:        30 * time.Second,
		Retry:          retry.DefaultConfig(),
		UserAgent:      "ptsync/1.0",
		RateLimiter:    DefaultRateLimiterConfig(),
		CircuitBreaker: cbConfig,
		Transport:      DefaultTransportConfig(),
	}
}

// DefaultTransportConfig returns sensible defaults for HTTP transport configuration.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
}

// IsTransientHTTPError reports whether err is worth counting against the
// circuit breaker or retrying. Client errors (4xx other than 429) are
// permanent: the payload is wrong and resending it won't help.
func IsTransientHTTPError(err error) bool {
	if statusErr, ok := err.(*StatusError); ok {
		return statusErr.StatusCode >= 500
	}
	return true
}

// New creates a new HTTP client with the given configuration.
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.Transport.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Transport.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.Transport.MaxConnsPerHost,
		IdleConnTimeout:     cfg.Transport.IdleConnTimeout,
		ForceAttemptHTTP2:   cfg.Transport.ForceAttemptHTTP2,
	}

	base := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}

	return &Client{
		base:           base,
		config:         cfg,
		rateLimiter:    NewRateLimiter(cfg.RateLimiter),
		circuitBreaker: NewCircuitBreaker(cfg.CircuitBreaker),
	}
}

// Response represents an HTTP response with status code and body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil, headers)
}

// Do performs an HTTP request with rate limit handling and circuit breaking.
// When the configured retry budget is greater than zero, transient failures
// are retried; note that a non-rewindable body (e.g. a streaming multipart
// pipe) must only be used with a zero retry budget.
func (c *Client) Do(ctx context.Context, method, urlStr string, body io.Reader, headers map[string]string) (*Response, error) {
	host := extractHost(urlStr)

	// Fail fast if the circuit is open
	if err := c.circuitBreaker.Allow(host); err != nil {
		return nil, err
	}

	// Wait out any backoff window from previous rate limit errors
	if err := c.rateLimiter.WaitForBackoff(ctx, urlStr); err != nil {
		c.circuitBreaker.RecordFailure(host, err)
		return nil, err
	}

	if err := c.rateLimiter.Wait(ctx, urlStr); err != nil {
		c.circuitBreaker.RecordFailure(host, err)
		return nil, err
	}

	var lastResp *http.Response

	err := retry.Do(ctx, c.config.Retry, c.isRetryableHTTPError, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
		if err != nil {
			return retry.Permanent(err)
		}

		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", c.config.UserAgent)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.base.Do(req)
		if err != nil {
			return fmt.Errorf("http request failed: %w", err)
		}

		// Server-side throttling
		if resp.StatusCode == http.StatusTooManyRequests ||
			resp.StatusCode == http.StatusServiceUnavailable {
			defer resp.Body.Close()

			retryAfter := parseRetryAfter(resp.Header)
			recommended := c.rateLimiter.RecordRateLimitError(urlStr, retryAfter)
			if recommended > retryAfter {
				retryAfter = recommended
			}

			return &RateLimitError{
				StatusCode: resp.StatusCode,
				RetryAfter: retryAfter,
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			defer resp.Body.Close()
			bodyBytes, _ := io.ReadAll(resp.Body)
			return &StatusError{
				StatusCode: resp.StatusCode,
				Body:       bodyBytes,
			}
		}

		lastResp = resp
		return nil
	})

	if err != nil {
		if lastResp != nil {
			lastResp.Body.Close()
		}
		c.circuitBreaker.RecordFailure(host, err)
		return nil, err
	}

	if lastResp == nil {
		c.circuitBreaker.RecordFailure(host, ErrNoResponse)
		return nil, ErrNoResponse
	}

	defer lastResp.Body.Close()
	respBody, err := io.ReadAll(lastResp.Body)
	if err != nil {
		c.circuitBreaker.RecordFailure(host, err)
		return nil, fmt.Errorf("read response body: %w", err)
	}

	c.rateLimiter.RecordSuccess(urlStr)
	c.circuitBreaker.RecordSuccess(host)

	return &Response{
		StatusCode: lastResp.StatusCode,
		Header:     lastResp.Header,
		Body:       respBody,
	}, nil
}

// isRetryableHTTPError determines if an HTTP error is retryable.
func (c *Client) isRetryableHTTPError(err error) bool {
	if !retry.IsRetryable(err) {
		return false
	}

	if _, ok := err.(*RateLimitError); ok {
		return true
	}

	if statusErr, ok := err.(*StatusError); ok {
		return statusErr.StatusCode >= 500
	}

	return true
}

// parseRetryAfter extracts the Retry-After header value.
// Returns zero if the header is absent or unparseable.
func parseRetryAfter(header http.Header) time.Duration {
	retryAfter := header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		return time.Until(t)
	}

	return 0
}

// Close closes idle connections held by the client.
func (c *Client) Close() error {
	if c.base != nil {
		c.base.CloseIdleConnections()
	}
	return nil
}
