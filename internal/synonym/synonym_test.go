package synonym

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := Load("")
	require.NoError(t, err)
	return r
}

func TestCanonical_ExactMatch(t *testing.T) {
	r := newTestResolver(t)

	assert.Equal(t, "EBITDA", r.Canonical("ebitda"))
	assert.Equal(t, "EBITDA", r.Canonical("  EBITDA  "))
	assert.Equal(t, "Revenue from Operation", r.Canonical("revenue"))
	assert.Equal(t, "PAT", r.Canonical("net profit"))
}

func TestCanonical_NoMatch(t *testing.T) {
	r := newTestResolver(t)

	assert.Empty(t, r.Canonical("share price"))
	assert.Empty(t, r.Canonical(""))
}

func TestDetectAccounts_SingleMetric(t *testing.T) {
	r := newTestResolver(t)

	got := r.DetectAccounts("What was EBITDA in 2024-25?")
	assert.Equal(t, []string{"EBITDA"}, got)
}

func TestDetectAccounts_MultiWordPhrase(t *testing.T) {
	r := newTestResolver(t)

	// Phrase words may appear in any order within the question.
	got := r.DetectAccounts("show me the capital employed on average")
	assert.Contains(t, got, "Average capital employed")
}

func TestDetectAccounts_DictionaryOrderStable(t *testing.T) {
	r := newTestResolver(t)

	// Both metrics present: the result follows dictionary order, so the
	// first detected account is deterministic across runs.
	got := r.DetectAccounts("compare revenue and ebitda")
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, "Revenue from Operation", got[0])
	assert.Equal(t, "EBITDA", got[1])
}

func TestDetectAccounts_OutOfDomain(t *testing.T) {
	r := newTestResolver(t)

	assert.Empty(t, r.DetectAccounts("What is the company share price today?"))
}

func TestTokens(t *testing.T) {
	got := Tokens("What was EBITDA % in 2024-25?")
	assert.Equal(t, []string{"what", "was", "ebitda", "%", "in", "2024", "25"}, got)
}

func TestParse_RejectsMalformed(t *testing.T) {
	_, err := Parse([]byte("not: a: dictionary"))
	assert.Error(t, err)

	_, err = Parse([]byte("synonyms: [a, b]"))
	assert.Error(t, err)
}

func TestParse_PreservesDocumentOrder(t *testing.T) {
	raw := []byte(`synonyms:
  Zeta:
    - "zeta"
  Alpha:
    - "alpha"
`)
	r, err := Parse(raw)
	require.NoError(t, err)

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Zeta", entries[0].Canonical)
	assert.Equal(t, "Alpha", entries[1].Canonical)
}
