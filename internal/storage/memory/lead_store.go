package memory

import (
	"context"
	"sync"
	"time"

	"github.com/linkly-crm/leadscout/internal/discovery"
)

// LeadStore is an in-memory discovery.LeadStore keyed on (email, company).
type LeadStore struct {
	mu      sync.RWMutex
	byKey   map[string]discovery.Lead
	sources []discovery.LeadSource
}

// NewLeadStore constructs a LeadStore.
func NewLeadStore() *LeadStore {
	return &LeadStore{byKey: make(map[string]discovery.Lead)}
}

// MergeLead finds or creates a lead under the merge key. The map guarded by
// the mutex gives the same check-and-create atomicity the Postgres store
// gets from its partial unique index.
func (s *LeadStore) MergeLead(_ context.Context, lead discovery.Lead) (discovery.Lead, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := lead.Email + "|" + lead.Company
	if existing, ok := s.byKey[key]; ok {
		return existing, false, nil
	}
	lead.Created = time.Now().UTC()
	s.byKey[key] = lead
	return lead, true, nil
}

// AddSource appends one provenance row.
func (s *LeadStore) AddSource(_ context.Context, src discovery.LeadSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src.Created = time.Now().UTC()
	s.sources = append(s.sources, src)
	return nil
}

// Leads returns a snapshot of all stored leads.
func (s *LeadStore) Leads() []discovery.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]discovery.Lead, 0, len(s.byKey))
	for _, lead := range s.byKey {
		out = append(out, lead)
	}
	return out
}

// Sources returns a snapshot of all provenance rows.
func (s *LeadStore) Sources() []discovery.LeadSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]discovery.LeadSource(nil), s.sources...)
}
