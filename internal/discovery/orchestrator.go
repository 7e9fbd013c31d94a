package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Batch validation errors surfaced to the API layer.
var (
	ErrNoKeywords      = errors.New("at least one keyword required")
	ErrBlankKeyword    = errors.New("keywords must be non-empty strings")
	ErrLimitOutOfRange = errors.New("limit must be between 1 and 100")
)

// Result-limit bounds for one keyword.
const (
	MinResultLimit = 1
	MaxResultLimit = 100
)

// OrchestratorConfig controls batch behavior.
type OrchestratorConfig struct {
	// DefaultLimit is the per-keyword result limit when the caller omits one.
	DefaultLimit int
	// MaxAttempts is fixed per job at creation.
	MaxAttempts int
	// JobConcurrency bounds concurrent jobs within one batch.
	JobConcurrency int
}

// Orchestrator accepts a batch of keywords, creates one job per keyword, and
// drives each job to completion or to its retry/failure state. Job failures
// are isolated: one failed keyword never fails the batch.
type Orchestrator struct {
	jobs   JobStore
	runner *Runner
	idGen  IDGenerator
	clock  Clock
	cfg    OrchestratorConfig
	logger *zap.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(
	jobs JobStore,
	runner *Runner,
	idGen IDGenerator,
	clock Clock,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.JobConcurrency <= 0 {
		cfg.JobConcurrency = 4
	}
	return &Orchestrator{
		jobs:   jobs,
		runner: runner,
		idGen:  idGen,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
}

// Discover creates one job per keyword and runs the batch. A limit of zero
// selects the configured default. The returned summaries reflect each job's
// status at the moment the batch finished.
func (o *Orchestrator) Discover(ctx context.Context, ownerID string, keywords []string, limit int) ([]JobSummary, error) {
	if limit == 0 {
		limit = o.cfg.DefaultLimit
	}
	if err := validateBatch(keywords, limit); err != nil {
		return nil, err
	}

	jobs := make([]Job, 0, len(keywords))
	for _, keyword := range keywords {
		job, err := o.createJob(ctx, ownerID, keyword)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	o.logger.Info("queued discovery jobs",
		zap.Int("count", len(jobs)),
		zap.String("owner_id", ownerID),
	)

	summaries := make([]JobSummary, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.JobConcurrency)
	for i, job := range jobs {
		g.Go(func() error {
			processed, err := o.runner.Process(gctx, job.ID, limit)
			if err != nil {
				// Store-level failure for this job; the batch continues.
				o.logger.Error("job processing failed",
					zap.String("job_id", job.ID),
					zap.String("keyword", job.Keyword),
					zap.Error(err),
				)
				summaries[i] = JobSummary{ID: job.ID, Keyword: job.Keyword, Status: job.Status}
				return nil
			}
			summaries[i] = JobSummary{ID: processed.ID, Keyword: processed.Keyword, Status: processed.Status}
			return nil
		})
	}
	_ = g.Wait()

	return summaries, nil
}

func (o *Orchestrator) createJob(ctx context.Context, ownerID, keyword string) (Job, error) {
	id, err := o.idGen.NewID()
	if err != nil {
		return Job{}, fmt.Errorf("generate job id: %w", err)
	}
	now := o.clock.Now()
	job := Job{
		ID:          id,
		OwnerID:     ownerID,
		Keyword:     keyword,
		Status:      StatusPending,
		Attempts:    0,
		MaxAttempts: o.cfg.MaxAttempts,
		Created:     now,
		Updated:     now,
	}
	if err := o.jobs.CreateJob(ctx, job); err != nil {
		return Job{}, fmt.Errorf("create job for %q: %w", keyword, err)
	}
	return job, nil
}

func validateBatch(keywords []string, limit int) error {
	if len(keywords) == 0 {
		return ErrNoKeywords
	}
	for _, keyword := range keywords {
		if strings.TrimSpace(keyword) == "" {
			return ErrBlankKeyword
		}
	}
	if limit < MinResultLimit || limit > MaxResultLimit {
		return ErrLimitOutOfRange
	}
	return nil
}
