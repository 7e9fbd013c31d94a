// Package collyfetcher implements the page Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/linkly-crm/leadscout/internal/discovery"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher implements discovery.Fetcher using the Colly collector. Robots
// admission is decided by the compliance gate before a URL reaches Fetch, so
// the collector itself does not consult robots.txt.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.IgnoreRobotsTxt = true
	// Non-success statuses must surface as responses, not errors: a bad page
	// contributes zero candidates without failing the job.
	c.ParseHTTPErrorResponse = true
	c.WithTransport(newHTTPTransport())
	return &Fetcher{cfg: cfg, baseCollector: c}
}

// Fetch executes a single HTTP GET using Colly.
func (f *Fetcher) Fetch(ctx context.Context, request discovery.FetchRequest) (discovery.FetchResponse, error) {
	collector := f.baseCollector.Clone()
	collector.UserAgent = f.userAgent(request)
	collector.SetRequestTimeout(f.cfg.Timeout)

	var result discovery.FetchResponse
	start := time.Now()
	collector.OnResponse(func(r *colly.Response) {
		result = discovery.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(request.URL)
	}()

	select {
	case <-ctx.Done():
		return discovery.FetchResponse{}, fmt.Errorf("page fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return discovery.FetchResponse{}, fmt.Errorf("page fetch failed: %w", err)
		}
		return result, nil
	}
}

func (f *Fetcher) userAgent(request discovery.FetchRequest) string {
	if request.UserAgent != "" {
		return request.UserAgent
	}
	return f.cfg.UserAgent
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
