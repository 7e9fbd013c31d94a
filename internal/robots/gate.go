// Package robots implements the per-URL crawl admission check against each
// origin's robots.txt.
package robots

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

const maxRobotsBody = 1 << 20

// Gate fetches and caches robots.txt per host and decides per-URL
// allow/deny. A User-agent group is active when its value is "*" or
// case-insensitively contains the crawl token; a URL is denied when any
// active group disallows its path. Every failure mode resolves to allow:
// absence of a robots file is not a denial signal.
type Gate struct {
	client    *http.Client
	cache     sync.Map
	userAgent string
	token     string
	logger    *zap.Logger
}

// cacheEntry is stored per host. A nil data pointer means the origin served
// no usable robots file and everything is allowed. agents holds the raw
// User-agent values seen in the file, for token containment matching.
type cacheEntry struct {
	data   *robotstxt.RobotsData
	agents []string
}

// NewGate builds a Gate identifying itself with the given User-Agent and
// matching robots groups against the given crawl token.
func NewGate(userAgent, token string, timeout time.Duration, logger *zap.Logger) *Gate {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gate{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		token:     strings.ToLower(token),
		logger:    logger,
	}
}

// Allowed reports whether the URL may be fetched for extraction.
func (g *Gate) Allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	entry, err := g.load(ctx, parsed)
	if err != nil {
		g.logger.Warn("robots fetch failed; allowing access",
			zap.String("host", parsed.Host), zap.Error(err))
		return true
	}
	if entry.data == nil {
		return true
	}

	path := parsed.Path
	if path == "" {
		path = "/"
	}
	for _, agent := range g.activeAgents(entry) {
		if group := entry.data.FindGroup(agent); group != nil && !group.Test(path) {
			return false
		}
	}
	return true
}

// activeAgents selects the User-agent values whose groups apply to this
// crawler: the wildcard group plus any value containing the crawl token.
func (g *Gate) activeAgents(entry cacheEntry) []string {
	agents := []string{"*"}
	if g.token == "" {
		return agents
	}
	for _, agent := range entry.agents {
		if agent != "*" && strings.Contains(strings.ToLower(agent), g.token) {
			agents = append(agents, agent)
		}
	}
	return agents
}

func (g *Gate) load(ctx context.Context, parsed *url.URL) (cacheEntry, error) {
	hostKey := strings.ToLower(parsed.Host)
	if cached, ok := g.cache.Load(hostKey); ok {
		entry, assertOK := cached.(cacheEntry)
		if !assertOK {
			return cacheEntry{}, fmt.Errorf("robots cache type mismatch: %T", cached)
		}
		return entry, nil
	}

	entry, err := g.fetch(ctx, parsed)
	if err != nil {
		return cacheEntry{}, err
	}
	g.cache.Store(hostKey, entry)
	return entry, nil
}

func (g *Gate) fetch(ctx context.Context, parsed *url.URL) (cacheEntry, error) {
	robotsURL := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/robots.txt"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return cacheEntry{}, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return cacheEntry{}, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			g.logger.Debug("close robots response body", zap.Error(cerr))
		}
	}()

	// Any non-success status resolves to allow before the parser sees it;
	// the library would otherwise treat some 4xx/5xx codes as deny-all.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return cacheEntry{}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBody))
	if err != nil {
		return cacheEntry{}, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return cacheEntry{}, fmt.Errorf("parse robots: %w", err)
	}
	return cacheEntry{data: data, agents: parseAgents(body)}, nil
}

// parseAgents collects the raw User-agent values from a robots body. The
// parser keys its groups by these values, so each one can be handed back to
// FindGroup to retrieve the group's rules.
func parseAgents(body []byte) []string {
	var agents []string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		field, value, found := strings.Cut(line, ":")
		if !found || !strings.EqualFold(strings.TrimSpace(field), "user-agent") {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			agents = append(agents, value)
		}
	}
	return agents
}
