package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finqa-cli/internal/synonym"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	r, err := synonym.Load("")
	require.NoError(t, err)
	return NewAnalyzer(r)
}

func TestAnalyze_PeriodsAndAccounts(t *testing.T) {
	a := newTestAnalyzer(t)

	it := a.Analyze("What was EBITDA in 2024-25?")
	assert.Equal(t, []string{"EBITDA"}, it.Accounts)
	assert.Equal(t, []string{"2024-25"}, it.Periods)
}

func TestAnalyze_MultiplePeriods(t *testing.T) {
	a := newTestAnalyzer(t)

	it := a.Analyze("YoY growth in revenue between 2023-24 and 2024-25")
	assert.Equal(t, []string{"2023-24", "2024-25"}, it.Periods)
}

func TestAnalyze_BareYearIsWeakSignal(t *testing.T) {
	a := newTestAnalyzer(t)

	it := a.Analyze("revenue in 2024")
	assert.Empty(t, it.Periods)
	assert.Equal(t, []string{"2024"}, it.Years)
}

func TestAnalyze_RankingSignals(t *testing.T) {
	a := newTestAnalyzer(t)

	it := a.Analyze("Top 5 ports by EBIT")
	assert.True(t, it.RankPorts)
	assert.Equal(t, 5, it.TopN)

	it = a.Analyze("rank years by revenue")
	assert.True(t, it.RankYears)
	assert.False(t, it.RankPorts)
}

func TestAnalyze_GroupByPortAndAllYears(t *testing.T) {
	a := newTestAnalyzer(t)

	it := a.Analyze("cargo volume by port")
	assert.True(t, it.GroupByPort)

	it = a.Analyze("EBITDA for all years")
	assert.True(t, it.AllYears)

	it = a.Analyze("revenue each year")
	assert.True(t, it.AllYears)
}

func TestAnalyze_NoSignals(t *testing.T) {
	a := newTestAnalyzer(t)

	it := a.Analyze("What is the share price?")
	assert.Empty(t, it.Accounts)
	assert.Empty(t, it.Periods)
	assert.Zero(t, it.TopN)
	assert.False(t, it.RankPorts || it.RankYears || it.GroupByPort || it.AllYears)
}

func TestLastNYears(t *testing.T) {
	assert.Equal(t, 3, LastNYears("trend over the last 3 years", 4))
	assert.Equal(t, 4, LastNYears("revenue trend", 4))
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny("show the growth trend", "growth", "compare"))
	assert.False(t, ContainsAny("plain lookup", "growth", "compare"))
}
