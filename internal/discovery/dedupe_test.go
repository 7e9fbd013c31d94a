package discovery

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeduplicateKeepsFirstSeenPerKey(t *testing.T) {
	t.Parallel()

	in := []CandidateLead{
		{Email: "jane@acme.com", Company: "Acme", SourceURL: "https://a.example/team"},
		{Email: "bob@acme.com", Company: "Acme", SourceURL: "https://a.example/team"},
		{Email: "jane@acme.com", Company: "Acme", SourceURL: "https://b.example/about"},
		{Email: "jane@acme.com", Company: "", SourceURL: "https://c.example"},
	}

	out := Deduplicate(in)

	require.Len(t, out, 3)
	require.Equal(t, "https://a.example/team", out[0].SourceURL)
	require.Equal(t, "bob@acme.com", out[1].Email)
	// Same email under a different company key survives.
	require.Equal(t, "https://c.example", out[2].SourceURL)
}

func TestDeduplicateIsIdempotent(t *testing.T) {
	t.Parallel()

	in := []CandidateLead{
		{Email: "a@x.com", Company: "X"},
		{Email: "a@x.com", Company: "X"},
		{Email: "b@x.com", Company: "X"},
	}

	once := Deduplicate(in)
	twice := Deduplicate(once)

	require.Equal(t, once, twice)
}

func TestDeduplicateEmptyInput(t *testing.T) {
	t.Parallel()

	require.Nil(t, Deduplicate(nil))
	require.Nil(t, Deduplicate([]CandidateLead{}))
}
