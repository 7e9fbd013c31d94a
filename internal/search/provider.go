// Package search adapts an external search provider into candidate URLs.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/linkly-crm/leadscout/internal/discovery"
)

// Config controls the provider client.
type Config struct {
	// BaseURL is the configured provider endpoint. Empty disables discovery:
	// searches return no candidates rather than erroring.
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client implements discovery.SearchProvider over a JSON HTTP endpoint that
// answers GET {base}?q={keyword}&limit={n} with an array of {url, title}.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewClient constructs a Client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Search returns up to limit candidate URLs for the keyword. Provider
// unreachability or a non-success status is a hard error for the calling
// job; no partial results are returned.
func (c *Client) Search(ctx context.Context, keyword string, limit int) ([]discovery.SearchResult, error) {
	if c.cfg.BaseURL == "" {
		c.logger.Warn("search provider not configured; discovery is disabled")
		return nil, nil
	}

	endpoint, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider url: %w", err)
	}
	q := endpoint.Query()
	q.Set("q", keyword)
	q.Set("limit", strconv.Itoa(limit))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new provider request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query provider: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close provider response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("search provider status %d", resp.StatusCode)
	}

	var results []discovery.SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
