// Package extract turns fetched pages into candidate leads.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/linkly-crm/leadscout/internal/discovery"
)

// Permissive on purpose: shared inboxes (info@, noreply@) are kept and left
// to downstream qualification.
var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// Config controls Extractor behavior.
type Config struct {
	UserAgent string
}

// Extractor fetches a page and scans its rendered text for email-like
// tokens, emitting one candidate per distinct address. The page title serves
// as the company-name fallback.
type Extractor struct {
	fetcher discovery.Fetcher
	cfg     Config
	logger  *zap.Logger
}

// New constructs an Extractor over the given page fetcher.
func New(fetcher discovery.Fetcher, cfg Config, logger *zap.Logger) *Extractor {
	return &Extractor{fetcher: fetcher, cfg: cfg, logger: logger}
}

// Extract implements discovery.Extractor. A non-success page status yields
// an empty candidate list, not an error; one bad page must not fail the job.
func (e *Extractor) Extract(ctx context.Context, pageURL string) ([]discovery.CandidateLead, error) {
	resp, err := e.fetcher.Fetch(ctx, discovery.FetchRequest{URL: pageURL, UserAgent: e.cfg.UserAgent})
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		e.logger.Debug("page returned non-success status",
			zap.String("url", pageURL), zap.Int("status", resp.StatusCode))
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}

	candidates := make([]discovery.CandidateLead, 0, 4)
	seen := make(map[string]struct{})
	for _, match := range emailPattern.FindAllString(text, -1) {
		email := strings.ToLower(match)
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		candidates = append(candidates, discovery.CandidateLead{
			Email:     email,
			Company:   title,
			Website:   pageURL,
			SourceURL: pageURL,
		})
	}
	return candidates, nil
}
