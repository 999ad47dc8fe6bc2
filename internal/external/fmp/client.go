// Package fmp is the market-data provider client (Financial Modeling Prep style JSON API).
package fmp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/trendscan/pkg/config"
	"github.com/wonny/trendscan/pkg/httputil"
	"github.com/wonny/trendscan/pkg/logger"
)

// DefaultBaseURL is used when the config leaves the base URL empty
const DefaultBaseURL = "https://financialmodelingprep.com/api/v3"

// Client handles communication with the provider
// ⭐ SSOT: Provider API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
}

// NewClient creates a new provider client
func NewClient(httpClient *httputil.Client, cfg config.ProviderConfig, log *logger.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithModule("fmp"),
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
	}
}

// endpoint builds an authenticated URL. Path segments are escaped by the caller.
func (c *Client) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	return fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
}

// getJSON fetches path and decodes the body into out
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.httpClient.GetJSON(ctx, c.endpoint(path, params), out); err != nil {
		return fmt.Errorf("fmp %s: %w", path, err)
	}
	return nil
}

// normalizeSymbol is applied before a symbol reaches the request path
func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
