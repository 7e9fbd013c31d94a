package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linkly-crm/leadscout/internal/discovery"
)

func TestJobStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	ctx := context.Background()
	job := discovery.Job{
		ID:          "job-1",
		OwnerID:     "owner-1",
		Keyword:     "fintech",
		Status:      discovery.StatusPending,
		MaxAttempts: 3,
	}
	require.NoError(t, store.CreateJob(ctx, job))
	require.Error(t, store.CreateJob(ctx, job))

	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, "fintech", got.Keyword)

	_, err = store.GetJob(ctx, "missing")
	require.ErrorIs(t, err, discovery.ErrJobNotFound)
}

func TestJobStoreUpdateJobRunGuard(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, discovery.Job{
		ID:          "job-1",
		Status:      discovery.StatusPending,
		MaxAttempts: 3,
	}))

	for attempt := 1; attempt <= 2; attempt++ {
		applied, err := store.UpdateJobRun(ctx, "job-1", discovery.State{
			Status:    discovery.StatusPending,
			Attempts:  attempt,
			LastError: "provider unreachable",
		})
		require.NoError(t, err)
		require.True(t, applied)
	}
	applied, err := store.UpdateJobRun(ctx, "job-1", discovery.State{
		Status:    discovery.StatusFailed,
		Attempts:  3,
		LastError: "provider unreachable",
	})
	require.NoError(t, err)
	require.True(t, applied)

	// Terminal row rejects further transitions.
	applied, err = store.UpdateJobRun(ctx, "job-1", discovery.State{
		Status:   discovery.StatusCompleted,
		Attempts: 4,
	})
	require.NoError(t, err)
	require.False(t, applied)

	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, discovery.StatusFailed, got.Status)
	require.Equal(t, 3, got.Attempts)

	_, err = store.UpdateJobRun(ctx, "missing", discovery.State{})
	require.ErrorIs(t, err, discovery.ErrJobNotFound)
}

func TestJobStoreUpdateJobRunRejectsStaleSnapshot(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, discovery.Job{
		ID:          "job-1",
		Status:      discovery.StatusPending,
		MaxAttempts: 3,
	}))

	// Two runners read attempts=0 and both compute a transition to
	// attempts=1. The second write must be rejected, not absorbed.
	applied, err := store.UpdateJobRun(ctx, "job-1", discovery.State{
		Status:    discovery.StatusPending,
		Attempts:  1,
		LastError: "provider unreachable",
	})
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = store.UpdateJobRun(ctx, "job-1", discovery.State{
		Status:    discovery.StatusPending,
		Attempts:  1,
		LastError: "provider unreachable",
	})
	require.NoError(t, err)
	require.False(t, applied)

	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, 1, got.Attempts)
}

func TestJobStoreListJobsFilters(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, discovery.Job{ID: "a", OwnerID: "owner-1", Status: discovery.StatusPending, MaxAttempts: 3}))
	require.NoError(t, store.CreateJob(ctx, discovery.Job{ID: "b", OwnerID: "owner-1", Status: discovery.StatusCompleted, MaxAttempts: 3}))
	require.NoError(t, store.CreateJob(ctx, discovery.Job{ID: "c", OwnerID: "owner-2", Status: discovery.StatusPending, MaxAttempts: 3}))

	all, err := store.ListJobs(ctx, "owner-1", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	status := discovery.StatusCompleted
	completed, err := store.ListJobs(ctx, "owner-1", &status)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	require.Equal(t, "b", completed[0].ID)
}

func TestLeadStoreMergeAndSources(t *testing.T) {
	t.Parallel()

	store := NewLeadStore()
	ctx := context.Background()

	first, created, err := store.MergeLead(ctx, discovery.Lead{
		ID: "lead-1", Email: "jane@acme.com", Company: "Acme", Status: discovery.LeadStatusNew, Score: discovery.BaselineLeadScore,
	})
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := store.MergeLead(ctx, discovery.Lead{
		ID: "lead-2", Email: "jane@acme.com", Company: "Acme",
	})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	// A different company under the same email is a distinct lead.
	_, created, err = store.MergeLead(ctx, discovery.Lead{
		ID: "lead-3", Email: "jane@acme.com", Company: "Beta",
	})
	require.NoError(t, err)
	require.True(t, created)
	require.Len(t, store.Leads(), 2)

	require.NoError(t, store.AddSource(ctx, discovery.LeadSource{ID: "src-1", LeadID: first.ID}))
	require.NoError(t, store.AddSource(ctx, discovery.LeadSource{ID: "src-2", LeadID: first.ID}))
	require.Len(t, store.Sources(), 2)
}
