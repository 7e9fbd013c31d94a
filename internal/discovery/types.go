// Package discovery defines the lead discovery pipeline: keyword-scoped
// jobs, candidate extraction, deduplication, and merge into the lead store.
package discovery

import "time"

// JobStatus represents the lifecycle state of a discovery job.
type JobStatus string

// Job status values persisted in the job store.
const (
	StatusPending   JobStatus = "pending"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job is one keyword-scoped unit of discovery work with bounded retries.
type Job struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Keyword     string    `json:"keyword"`
	Status      JobStatus `json:"status"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	LastError   string    `json:"last_error,omitempty"`
	Created     time.Time `json:"created_at"`
	Updated     time.Time `json:"updated_at"`
}

// Terminal reports whether the job may never be processed again: either a
// terminal status was reached or the retry budget is exhausted.
func (j Job) Terminal() bool {
	if j.Status == StatusCompleted || j.Status == StatusFailed {
		return true
	}
	return j.Attempts >= j.MaxAttempts
}

// SearchResult is one candidate URL returned by the search provider.
type SearchResult struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// CandidateLead is an unvalidated extraction result from a single page.
// It is transient: produced by the extractor, collapsed by Deduplicate,
// and discarded after the merge step.
type CandidateLead struct {
	Email     string
	Name      string
	Company   string
	Website   string
	SourceURL string
}

// Lead field defaults applied when a candidate is promoted to a new lead.
const (
	LeadStatusNew     = "New"
	BaselineLeadScore = 50
	UnknownCompany    = "Unknown"
)

// Lead is the persisted contact record. The merge identity key is
// (email, company) among non-deleted leads.
type Lead struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Company    string    `json:"company"`
	WebsiteURL string    `json:"website_url,omitempty"`
	Status     string    `json:"status"`
	Score      int       `json:"score"`
	Created    time.Time `json:"created_at"`
}

// SourceWebSearch labels provenance rows produced by this pipeline.
const SourceWebSearch = "web_search"

// LeadSource is an append-only provenance row linking a lead to the
// keyword and URL that discovered it.
type LeadSource struct {
	ID      string    `json:"id"`
	LeadID  string    `json:"lead_id"`
	Source  string    `json:"source"`
	URL     string    `json:"url"`
	Keyword string    `json:"keyword"`
	Created time.Time `json:"created_at"`
}

// JobSummary is returned per keyword from a discovery batch.
type JobSummary struct {
	ID      string    `json:"id"`
	Keyword string    `json:"keyword"`
	Status  JobStatus `json:"status"`
}

// FetchRequest captures everything needed to fetch a candidate page.
type FetchRequest struct {
	URL       string
	UserAgent string
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}
