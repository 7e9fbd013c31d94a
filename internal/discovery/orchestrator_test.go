package discovery_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linkly-crm/leadscout/internal/discovery"
	"github.com/linkly-crm/leadscout/internal/storage/memory"
)

type stubClock struct{}

func (stubClock) Now() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

func newOrchestrator(jobs *memory.JobStore, leads *memory.LeadStore, provider discovery.SearchProvider, extractor discovery.Extractor) *discovery.Orchestrator {
	runner := discovery.NewRunner(
		jobs, leads, provider, &fakeRobots{}, extractor, &seqIDGen{},
		discovery.RunnerConfig{}, zap.NewNop(),
	)
	return discovery.NewOrchestrator(
		jobs, runner, &seqIDGen{n: 1000}, stubClock{},
		discovery.OrchestratorConfig{}, zap.NewNop(),
	)
}

func TestOrchestrator_ValidatesBatch(t *testing.T) {
	t.Parallel()

	orch := newOrchestrator(memory.NewJobStore(), memory.NewLeadStore(), &fakeProvider{}, &fakeExtractor{})

	_, err := orch.Discover(context.Background(), "owner-1", nil, 20)
	require.ErrorIs(t, err, discovery.ErrNoKeywords)

	_, err = orch.Discover(context.Background(), "owner-1", []string{"fintech", "   "}, 20)
	require.ErrorIs(t, err, discovery.ErrBlankKeyword)

	_, err = orch.Discover(context.Background(), "owner-1", []string{"fintech"}, 101)
	require.ErrorIs(t, err, discovery.ErrLimitOutOfRange)

	_, err = orch.Discover(context.Background(), "owner-1", []string{"fintech"}, -1)
	require.ErrorIs(t, err, discovery.ErrLimitOutOfRange)
}

func TestOrchestrator_OneJobPerKeyword(t *testing.T) {
	t.Parallel()

	jobs := memory.NewJobStore()
	provider := &fakeProvider{}
	orch := newOrchestrator(jobs, memory.NewLeadStore(), provider, &fakeExtractor{})

	summaries, err := orch.Discover(context.Background(), "owner-1", []string{"fintech", "saas", "logistics"}, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	keywords := make([]string, 0, len(summaries))
	for _, s := range summaries {
		require.NotEmpty(t, s.ID)
		require.Equal(t, discovery.StatusCompleted, s.Status)
		keywords = append(keywords, s.Keyword)

		stored, err := jobs.GetJob(context.Background(), s.ID)
		require.NoError(t, err)
		require.Equal(t, "owner-1", stored.OwnerID)
		require.Equal(t, 3, stored.MaxAttempts)
	}
	require.Equal(t, []string{"fintech", "saas", "logistics"}, keywords)
}

func TestOrchestrator_KeywordFailuresAreIsolated(t *testing.T) {
	t.Parallel()

	jobs := memory.NewJobStore()
	leads := memory.NewLeadStore()
	provider := &flakyProvider{failKeyword: "saas"}
	extractor := &fakeExtractor{pages: map[string][]discovery.CandidateLead{
		"https://a.example": {{Email: "jane@acme.com", Company: "Acme", SourceURL: "https://a.example"}},
	}}
	orch := newOrchestrator(jobs, leads, provider, extractor)

	summaries, err := orch.Discover(context.Background(), "owner-1", []string{"fintech", "saas"}, 20)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byKeyword := map[string]discovery.JobStatus{}
	for _, s := range summaries {
		byKeyword[s.Keyword] = s.Status
	}
	require.Equal(t, discovery.StatusCompleted, byKeyword["fintech"])
	require.Equal(t, discovery.StatusPending, byKeyword["saas"])
	require.Len(t, leads.Leads(), 1)
}

type flakyProvider struct {
	failKeyword string
}

func (f *flakyProvider) Search(_ context.Context, keyword string, _ int) ([]discovery.SearchResult, error) {
	if keyword == f.failKeyword {
		return nil, context.DeadlineExceeded
	}
	return []discovery.SearchResult{{URL: "https://a.example", Title: "Acme"}}, nil
}
