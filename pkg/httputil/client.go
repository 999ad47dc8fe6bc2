package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/trendscan/pkg/config"
	"github.com/wonny/trendscan/pkg/logger"
	"github.com/wonny/trendscan/pkg/redis"
	"github.com/wonny/trendscan/pkg/retry"
)

// maxErrorBody bounds how much of a failed response is kept in StatusError
const maxErrorBody = 512

// Client is an HTTP client wrapper with retry, rate limiting and logging
// ⭐ SSOT: 모든 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient   *http.Client
	logger       *logger.Logger
	policy       retry.Policy
	retryEnabled bool
	limiter      *rate.Limiter
	rateLimiter  *redis.RateLimiter
	rateLimitCfg *redis.RateLimitConfig
}

// New creates a new HTTP client from config
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) *Client {
	timeout := cfg.Provider.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:       log.WithModule("httputil"),
		policy:       retry.FromConfig(cfg.Retry),
		retryEnabled: true,
	}
	if cfg.Provider.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.Provider.RequestsPerSecond), 1)
	}
	return c
}

// WithRetry replaces the retry policy
func (c *Client) WithRetry(policy retry.Policy) *Client {
	c.policy = policy
	c.retryEnabled = true
	return c
}

// DisableRetry disables automatic retry
func (c *Client) DisableRetry() *Client {
	c.retryEnabled = false
	return c
}

// WithRateLimiter adds the shared Redis limiter on top of the local one
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter, cfg redis.RateLimitConfig) *Client {
	c.rateLimiter = limiter
	c.rateLimitCfg = &cfg
	return c
}

// GetJSON performs a GET and decodes a 2xx JSON body into out.
// Transient failures are retried; other non-2xx responses return *StatusError.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out interface{}) error {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", redact(rawURL), err)
	}
	return nil
}

// Get performs a GET and returns the body of a 2xx response
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	startTime := time.Now()
	safeURL := redact(rawURL)

	c.logger.WithFields(map[string]interface{}{
		"method": http.MethodGet,
		"url":    safeURL,
	}).Debug("HTTP request started")

	attempt := 0
	op := func(ctx context.Context) ([]byte, error) {
		attempt++
		if attempt > 1 {
			c.logger.WithFields(map[string]interface{}{
				"attempt": attempt,
				"url":     safeURL,
			}).Warn("Retrying HTTP request")
		}
		return c.once(ctx, rawURL)
	}

	var body []byte
	var err error
	if c.retryEnabled {
		body, err = retry.DoValue(ctx, c.policy, IsRetryable, op)
	} else {
		body, err = op(ctx)
	}

	duration := time.Since(startTime)
	if err != nil {
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"url":      safeURL,
			"attempts": attempt,
			"duration": duration.String(),
		}).Warn("HTTP request failed")
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"url":      safeURL,
		"bytes":    len(body),
		"duration": duration.String(),
	}).Debug("HTTP request completed")

	return body, nil
}

// once is a single rate-limited attempt
func (c *Client) once(ctx context.Context, rawURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}
	if c.rateLimiter != nil && c.rateLimitCfg != nil {
		if err := c.rateLimiter.Wait(ctx, *c.rateLimitCfg); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := body
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			URL:        redact(rawURL),
			Body:       string(snippet),
		}
	}

	return body, nil
}

// redact hides credentials carried in the query string
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	for _, k := range []string{"apikey", "api_key", "token"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
