package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/linkly-crm/leadscout/internal/discovery"
)

type frozenClock struct{ now time.Time }

func (c frozenClock) Now() time.Time { return c.now }

func newLeadStoreMock(t *testing.T) (*LeadStore, pgxmock.PgxPoolIface, time.Time) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store, err := NewLeadStore(mock, frozenClock{now: now})
	require.NoError(t, err)
	return store, mock, now
}

func TestLeadStoreMergeLeadCreates(t *testing.T) {
	t.Parallel()

	store, mock, now := newLeadStoreMock(t)
	lead := discovery.Lead{
		ID:         "lead-1",
		Email:      "jane@acme.com",
		Name:       "jane",
		Company:    "Acme",
		WebsiteURL: "https://acme.example",
		Status:     discovery.LeadStatusNew,
		Score:      discovery.BaselineLeadScore,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leads")).
		WithArgs("lead-1", "jane@acme.com", "jane", "Acme", pgxmock.AnyArg(), discovery.LeadStatusNew, discovery.BaselineLeadScore, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	merged, created, err := store.MergeLead(context.Background(), lead)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "lead-1", merged.ID)
	require.Equal(t, now, merged.Created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadStoreMergeLeadReusesExisting(t *testing.T) {
	t.Parallel()

	store, mock, now := newLeadStoreMock(t)
	lead := discovery.Lead{
		ID:      "lead-new",
		Email:   "jane@acme.com",
		Name:    "jane",
		Company: "Acme",
		Status:  discovery.LeadStatusNew,
		Score:   discovery.BaselineLeadScore,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leads")).
		WithArgs("lead-new", "jane@acme.com", "jane", "Acme", pgxmock.AnyArg(), discovery.LeadStatusNew, discovery.BaselineLeadScore, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	existing := "https://acme.example"
	mock.ExpectQuery(regexp.QuoteMeta("FROM leads")).
		WithArgs("jane@acme.com", "Acme").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "email", "name", "company", "website_url", "status", "score", "created_at",
		}).AddRow("lead-old", "jane@acme.com", "Jane Doe", "Acme", &existing, "Contacted", 70, now.Add(-time.Hour)))

	merged, created, err := store.MergeLead(context.Background(), lead)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "lead-old", merged.ID)
	require.Equal(t, "Jane Doe", merged.Name)
	require.Equal(t, "Contacted", merged.Status)
	require.Equal(t, 70, merged.Score)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadStoreAddSource(t *testing.T) {
	t.Parallel()

	store, mock, now := newLeadStoreMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lead_discovery_sources")).
		WithArgs("src-1", "lead-1", discovery.SourceWebSearch, "https://acme.example/team", "fintech", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.AddSource(context.Background(), discovery.LeadSource{
		ID:      "src-1",
		LeadID:  "lead-1",
		Source:  discovery.SourceWebSearch,
		URL:     "https://acme.example/team",
		Keyword: "fintech",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
