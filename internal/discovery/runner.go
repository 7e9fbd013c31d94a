package discovery

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/linkly-crm/leadscout/internal/metrics"
)

// RunnerConfig controls Runner behavior.
type RunnerConfig struct {
	// PageConcurrency bounds concurrent page fetches within one job.
	PageConcurrency int
}

// Runner executes a single discovery job end-to-end: provider query, robots
// admission, extraction, dedupe, and merge into the lead store. It owns the
// job's attempt bookkeeping and terminal-state transitions.
type Runner struct {
	jobs      JobStore
	leads     LeadStore
	provider  SearchProvider
	robots    RobotsPolicy
	extractor Extractor
	idGen     IDGenerator
	cfg       RunnerConfig
	logger    *zap.Logger
}

// NewRunner constructs a Runner.
func NewRunner(
	jobs JobStore,
	leads LeadStore,
	provider SearchProvider,
	robots RobotsPolicy,
	extractor Extractor,
	idGen IDGenerator,
	cfg RunnerConfig,
	logger *zap.Logger,
) *Runner {
	if cfg.PageConcurrency <= 0 {
		cfg.PageConcurrency = 4
	}
	return &Runner{
		jobs:      jobs,
		leads:     leads,
		provider:  provider,
		robots:    robots,
		extractor: extractor,
		idGen:     idGen,
		cfg:       cfg,
		logger:    logger,
	}
}

// Process runs one invocation of the job. Terminal jobs are a no-op and are
// returned unchanged. The attempt increment and the resulting status are
// persisted in a single conditional update, so an invocation either applies
// one full transition or nothing.
func (r *Runner) Process(ctx context.Context, jobID string, limit int) (Job, error) {
	job, err := r.jobs.GetJob(ctx, jobID)
	if err != nil {
		return Job{}, fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Terminal() {
		r.logger.Debug("job already terminal", zap.String("job_id", job.ID), zap.String("status", string(job.Status)))
		return job, nil
	}

	runErr := r.run(ctx, job, limit)
	next := Next(StateOf(job), job.MaxAttempts, runErr)

	applied, err := r.jobs.UpdateJobRun(ctx, job.ID, next)
	if err != nil {
		return Job{}, fmt.Errorf("update job %s: %w", job.ID, err)
	}
	if !applied {
		// Another runner got there first; report whatever it left behind.
		r.logger.Warn("job transition lost to concurrent run", zap.String("job_id", job.ID))
		return r.jobs.GetJob(ctx, job.ID)
	}
	metrics.ObserveJob(string(next.Status))

	if runErr != nil {
		r.logger.Warn("discovery job run failed",
			zap.String("job_id", job.ID),
			zap.String("keyword", job.Keyword),
			zap.Int("attempts", next.Attempts),
			zap.String("status", string(next.Status)),
			zap.Error(runErr),
		)
	} else {
		r.logger.Info("discovery job completed",
			zap.String("job_id", job.ID),
			zap.String("keyword", job.Keyword),
			zap.Int("attempts", next.Attempts),
		)
	}

	job.Status = next.Status
	job.Attempts = next.Attempts
	job.LastError = next.LastError
	return job, nil
}

// run executes one attempt. Only provider-level and persistence-level errors
// are returned; page-level failures are absorbed inside collect.
func (r *Runner) run(ctx context.Context, job Job, limit int) error {
	results, err := r.provider.Search(ctx, job.Keyword, limit)
	if err != nil {
		return fmt.Errorf("search %q: %w", job.Keyword, err)
	}

	candidates := r.collect(ctx, job, results)
	deduped := Deduplicate(candidates)

	for _, cand := range deduped {
		if err := r.merge(ctx, job, cand); err != nil {
			return fmt.Errorf("merge lead %s: %w", cand.Email, err)
		}
	}
	return nil
}

// collect fetches and extracts all admitted pages, bounded-concurrently.
// Output preserves provider order so downstream dedupe keeps first-seen
// entries deterministically. A failed page contributes zero candidates.
func (r *Runner) collect(ctx context.Context, job Job, results []SearchResult) []CandidateLead {
	perPage := make([][]CandidateLead, len(results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.PageConcurrency)
	for i, res := range results {
		g.Go(func() error {
			if !r.robots.Allowed(gctx, res.URL) {
				r.logger.Debug("url disallowed by robots",
					zap.String("job_id", job.ID), zap.String("url", res.URL))
				metrics.ObservePage(metrics.PageDenied)
				return nil
			}
			cands, err := r.extractor.Extract(gctx, res.URL)
			if err != nil {
				r.logger.Warn("page extraction failed",
					zap.String("job_id", job.ID), zap.String("url", res.URL), zap.Error(err))
				metrics.ObservePage(metrics.PageFailed)
				return nil
			}
			metrics.ObservePage(metrics.PageFetched)
			perPage[i] = cands
			return nil
		})
	}
	// Page goroutines never return errors; failures are absorbed above.
	_ = g.Wait()

	var out []CandidateLead
	for _, cands := range perPage {
		out = append(out, cands...)
	}
	return out
}

// merge promotes one deduplicated candidate into the lead store and records
// its provenance. Existing leads are reused without field overwrites.
func (r *Runner) merge(ctx context.Context, job Job, cand CandidateLead) error {
	leadID, err := r.idGen.NewID()
	if err != nil {
		return fmt.Errorf("generate lead id: %w", err)
	}
	lead := Lead{
		ID:         leadID,
		Email:      cand.Email,
		Name:       candidateName(cand),
		Company:    candidateCompany(cand),
		WebsiteURL: cand.Website,
		Status:     LeadStatusNew,
		Score:      BaselineLeadScore,
	}
	merged, created, err := r.leads.MergeLead(ctx, lead)
	if err != nil {
		return fmt.Errorf("merge into lead store: %w", err)
	}
	metrics.ObserveLead(created)

	srcID, err := r.idGen.NewID()
	if err != nil {
		return fmt.Errorf("generate source id: %w", err)
	}
	src := LeadSource{
		ID:      srcID,
		LeadID:  merged.ID,
		Source:  SourceWebSearch,
		URL:     cand.SourceURL,
		Keyword: job.Keyword,
	}
	if err := r.leads.AddSource(ctx, src); err != nil {
		return fmt.Errorf("record lead source: %w", err)
	}
	return nil
}

func candidateName(cand CandidateLead) string {
	if cand.Name != "" {
		return cand.Name
	}
	local, _, found := strings.Cut(cand.Email, "@")
	if !found || local == "" {
		return cand.Email
	}
	return local
}

func candidateCompany(cand CandidateLead) string {
	if cand.Company != "" {
		return cand.Company
	}
	return UnknownCompany
}
