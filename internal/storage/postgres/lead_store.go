package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/linkly-crm/leadscout/internal/discovery"
)

// LeadStore implements discovery.LeadStore against the leads and
// lead_discovery_sources tables:
//
//	CREATE TABLE leads (
//		id UUID PRIMARY KEY,
//		email TEXT NOT NULL,
//		name TEXT NOT NULL,
//		company TEXT NOT NULL,
//		website_url TEXT,
//		status TEXT NOT NULL,
//		score INT NOT NULL,
//		created_at TIMESTAMPTZ NOT NULL,
//		deleted_at TIMESTAMPTZ
//	);
//	CREATE UNIQUE INDEX leads_email_company_live
//		ON leads (email, company) WHERE deleted_at IS NULL;
//
//	CREATE TABLE lead_discovery_sources (
//		id UUID PRIMARY KEY,
//		lead_id UUID NOT NULL REFERENCES leads(id),
//		source TEXT NOT NULL,
//		url TEXT NOT NULL,
//		keyword TEXT NOT NULL,
//		created_at TIMESTAMPTZ NOT NULL
//	);
type LeadStore struct {
	pool  DB
	clock discovery.Clock
}

// NewLeadStore constructs a LeadStore over an existing pool.
func NewLeadStore(pool DB, clock discovery.Clock) (*LeadStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	return &LeadStore{pool: pool, clock: clock}, nil
}

// MergeLead finds or creates a lead keyed on (email, company) among
// non-deleted rows. The insert races safely against concurrent jobs: the
// partial unique index makes ON CONFLICT DO NOTHING the atomic
// check-and-create, after which the winner's row is read back.
func (s *LeadStore) MergeLead(ctx context.Context, lead discovery.Lead) (discovery.Lead, bool, error) {
	insert := `
INSERT INTO leads (id, email, name, company, website_url, status, score, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (email, company) WHERE deleted_at IS NULL DO NOTHING`
	now := s.clock.Now()
	tag, err := s.pool.Exec(ctx, insert,
		lead.ID,
		lead.Email,
		lead.Name,
		lead.Company,
		nullableText(lead.WebsiteURL),
		lead.Status,
		lead.Score,
		now,
	)
	if err != nil {
		return discovery.Lead{}, false, fmt.Errorf("insert lead: %w", err)
	}
	if tag.RowsAffected() == 1 {
		lead.Created = now
		return lead, true, nil
	}

	existing, err := s.findLive(ctx, lead.Email, lead.Company)
	if err != nil {
		return discovery.Lead{}, false, err
	}
	return existing, false, nil
}

func (s *LeadStore) findLive(ctx context.Context, email, company string) (discovery.Lead, error) {
	query := `
SELECT id, email, name, company, website_url, status, score, created_at
FROM leads
WHERE email = $1 AND company = $2 AND deleted_at IS NULL`
	var (
		lead    discovery.Lead
		website *string
		created time.Time
	)
	err := s.pool.QueryRow(ctx, query, email, company).Scan(
		&lead.ID,
		&lead.Email,
		&lead.Name,
		&lead.Company,
		&website,
		&lead.Status,
		&lead.Score,
		&created,
	)
	if err != nil {
		return discovery.Lead{}, fmt.Errorf("find lead: %w", err)
	}
	if website != nil {
		lead.WebsiteURL = *website
	}
	lead.Created = created
	return lead, nil
}

// AddSource appends one provenance row. Sources are append-only and never
// updated.
func (s *LeadStore) AddSource(ctx context.Context, src discovery.LeadSource) error {
	query := `
INSERT INTO lead_discovery_sources (id, lead_id, source, url, keyword, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := s.pool.Exec(ctx, query,
		src.ID,
		src.LeadID,
		src.Source,
		src.URL,
		src.Keyword,
		s.clock.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert lead source: %w", err)
	}
	return nil
}
