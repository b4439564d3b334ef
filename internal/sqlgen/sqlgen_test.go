package sqlgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finqa-cli/internal/intent"
	"github.com/sells-group/finqa-cli/internal/synonym"
)

type fixedPeriods struct {
	latest string
}

func (f fixedPeriods) LatestPeriod(ctx context.Context) (string, error) {
	return f.latest, nil
}

func analyze(t *testing.T, question string) intent.Intent {
	t.Helper()
	r, err := synonym.Load("")
	require.NoError(t, err)
	return intent.NewAnalyzer(r).Analyze(question)
}

func TestBuild_NoAccount(t *testing.T) {
	s := New(fixedPeriods{latest: "2024-25"})

	_, status, err := s.Build(context.Background(), analyze(t, "What is the share price?"))
	require.NoError(t, err)
	assert.Equal(t, StatusNoAccount, status)
}

func TestBuild_AccountLookup_LatestPeriod(t *testing.T) {
	s := New(fixedPeriods{latest: "2024-25"})

	b, status, err := s.Build(context.Background(), analyze(t, "What was EBITDA?"))
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Contains(t, b.SQL, "fact_pnl_annual")
	assert.Contains(t, b.SQL, "MIN(account_id)")
	assert.Contains(t, b.SQL, "p.raw_label IN (?)")
	assert.Equal(t, []any{"EBITDA", "EBITDA", "2024-25"}, b.Args)
}

func TestBuild_AccountLookup_ExplicitPeriodWins(t *testing.T) {
	s := New(fixedPeriods{latest: "2024-25"})

	b, status, err := s.Build(context.Background(), analyze(t, "What was EBITDA in 2022-23?"))
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, []any{"EBITDA", "EBITDA", "2022-23"}, b.Args)
}

func TestBuild_AccountLookup_BareYearSkipsFilter(t *testing.T) {
	s := New(fixedPeriods{latest: "2024-25"})

	b, status, err := s.Build(context.Background(), analyze(t, "revenue in 2024"))
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.NotContains(t, b.SQL, "p.raw_label IN")
	assert.Equal(t, []any{"Revenue from Operation", "Revenue from Operation"}, b.Args)
}

func TestBuild_EBITRoutesToROCETable(t *testing.T) {
	s := New(fixedPeriods{latest: "2024-25"})

	b, status, err := s.Build(context.Background(), analyze(t, "What was EBIT in 2023-24?"))
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Contains(t, b.SQL, "fact_roce_external")
	assert.NotContains(t, b.SQL, "fact_balance_sheet")
}

func TestBuild_RankYears(t *testing.T) {
	s := New(fixedPeriods{latest: "2024-25"})

	b, status, err := s.Build(context.Background(), analyze(t, "rank years by revenue"))
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Contains(t, b.SQL, "ORDER BY value DESC")
	assert.NotContains(t, b.SQL, "p.raw_label IN")
}

func TestBuild_PortEBITRanking_DefaultLimit(t *testing.T) {
	s := New(fixedPeriods{latest: "2024-25"})

	b, status, err := s.Build(context.Background(), analyze(t, "Top ports by EBIT"))
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Contains(t, b.SQL, "fact_roce_internal")
	assert.Contains(t, b.SQL, "LIMIT 3")
	assert.Equal(t, []any{"2024-25"}, b.Args)
}

func TestBuild_PortEBITRanking_ExplicitTopN(t *testing.T) {
	s := New(fixedPeriods{latest: "2024-25"})

	b, status, err := s.Build(context.Background(), analyze(t, "Top 5 ports by EBIT"))
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Contains(t, b.SQL, "LIMIT 5")
}

func TestBuild_PortVolumes_CargoFilter(t *testing.T) {
	s := New(fixedPeriods{latest: "2024-25"})

	b, status, err := s.Build(context.Background(), analyze(t, "dry cargo volume by port"))
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Contains(t, b.SQL, "fact_volume")
	assert.Contains(t, b.SQL, "ct.name=?")
	assert.Equal(t, []any{"2024-25", "Dry"}, b.Args)
}

func TestBuild_PortVolumes_NoFilter(t *testing.T) {
	s := New(fixedPeriods{latest: "2024-25"})

	b, status, err := s.Build(context.Background(), analyze(t, "cargo volume by port"))
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.NotContains(t, b.SQL, "ct.name=?")
	assert.Equal(t, []any{"2024-25"}, b.Args)
}

func TestBuild_EBITDAMarginUsesView(t *testing.T) {
	s := New(fixedPeriods{latest: "2024-25"})

	b, status, err := s.Build(context.Background(), analyze(t, "What is the EBITDA margin?"))
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, "SELECT period, ebitda_margin FROM view_ebitda_margin", b.SQL)
}

func TestBuild_ROCEUsesView(t *testing.T) {
	s := New(fixedPeriods{latest: "2024-25"})

	b, status, err := s.Build(context.Background(), analyze(t, "What is the ROCE based on EBIT?"))
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, "SELECT period, roce FROM view_roce", b.SQL)
}

func TestBuild_PortEfficiencyUsesView(t *testing.T) {
	s := New(fixedPeriods{latest: "2024-25"})

	b, status, err := s.Build(context.Background(), analyze(t, "EBIT per MMT of cargo for 2024-25"))
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Contains(t, b.SQL, "view_port_ebit_volume")
	assert.Equal(t, []any{"2024-25"}, b.Args)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}
