package discovery

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound signals that the requested job does not exist.
var ErrJobNotFound = errors.New("discovery job not found")

// JobStore persists discovery jobs. Jobs are never deleted; terminal status
// plus last_error form the audit trail.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	// UpdateJobRun applies the outcome of one run attempt. The update must be
	// conditional on the job still being runnable (status pending, attempts
	// below max_attempts) and still holding the attempts value the run
	// started from, so concurrent runners cannot double-apply; it reports
	// whether the transition was applied.
	UpdateJobRun(ctx context.Context, jobID string, next State) (bool, error)
	ListJobs(ctx context.Context, ownerID string, status *JobStatus) ([]Job, error)
}

// LeadStore persists leads and their provenance rows.
type LeadStore interface {
	// MergeLead finds a non-deleted lead matching (email, company) or creates
	// the given one atomically. Existing leads are returned unmodified; the
	// boolean reports whether a new row was created.
	MergeLead(ctx context.Context, lead Lead) (Lead, bool, error)
	AddSource(ctx context.Context, src LeadSource) error
}

// SearchProvider returns candidate URLs for a keyword. An unconfigured
// provider returns an empty list rather than an error.
type SearchProvider interface {
	Search(ctx context.Context, keyword string, limit int) ([]SearchResult, error)
}

// RobotsPolicy decides per-URL crawl admission. Implementations fail open:
// an unreachable or malformed robots.txt never denies.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// Extractor fetches an allowed page and extracts candidate leads from it.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) ([]CandidateLead, error)
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
