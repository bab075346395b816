// Package pumpportal is the REST client for the PumpPortal token discovery
// API.
package pumpportal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

// ErrAPI is returned when the API reports success=false.
var ErrAPI = errors.New("pumpportal: api error")

// Client is the PumpPortal REST client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client. baseURL is the API root, e.g.
// "https://api.pumpportal.fun". An empty apiKey sends unauthenticated
// requests.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetNewTokens returns recently launched tokens.
func (c *Client) GetNewTokens(ctx context.Context) ([]domain.Asset, error) {
	assets, err := c.getTokenList(ctx, "/api/tokens/new")
	if err != nil {
		return nil, fmt.Errorf("pumpportal: get new tokens: %w", err)
	}
	return assets, nil
}

// GetTrendingTokens returns currently trending tokens.
func (c *Client) GetTrendingTokens(ctx context.Context) ([]domain.Asset, error) {
	assets, err := c.getTokenList(ctx, "/api/tokens/trending")
	if err != nil {
		return nil, fmt.Errorf("pumpportal: get trending tokens: %w", err)
	}
	return assets, nil
}

// GetTokenMetrics returns short-horizon metrics for one token.
func (c *Client) GetTokenMetrics(ctx context.Context, address string) (TokenMetrics, error) {
	body, err := c.doGet(ctx, fmt.Sprintf("/api/tokens/%s/metrics", url.PathEscape(address)))
	if err != nil {
		return TokenMetrics{}, fmt.Errorf("pumpportal: get metrics for %s: %w", address, err)
	}
	var m TokenMetrics
	if err := json.Unmarshal(body, &m); err != nil {
		return TokenMetrics{}, fmt.Errorf("pumpportal: decode metrics for %s: %w", address, err)
	}
	return m, nil
}

func (c *Client) getTokenList(ctx context.Context, path string) ([]domain.Asset, error) {
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, err
	}
	var resp tokenListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !resp.Success {
		msg := "unknown API error"
		if resp.Message != nil && *resp.Message != "" {
			msg = *resp.Message
		}
		return nil, fmt.Errorf("%w: %s", ErrAPI, msg)
	}
	return resp.Data, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 256))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// LatestPrice fetches the current USD price of a token. It reports false
// when the request fails or the API quotes no price.
func (c *Client) LatestPrice(ctx context.Context, address string) (float64, bool) {
	m, err := c.GetTokenMetrics(ctx, address)
	if err != nil || m.Price <= 0 {
		return 0, false
	}
	return m.Price, true
}
