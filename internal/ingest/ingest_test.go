package ingest

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finqa-cli/internal/synonym"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// buildFixtureDB runs a full ingestion over a small CSV dataset and
// returns an open read-write handle for assertions.
func buildFixtureDB(t *testing.T) *sql.DB {
	t.Helper()
	dataDir := t.TempDir()

	writeFixture(t, dataDir, "Consolidated PnL.csv",
		"Line Item,Period,Value\n"+
			"Revenue from Operations,2023-24,\"1,200\"\n"+
			"Revenue from Operations,2024-25,\"1,500\"\n"+
			"EBITDA,2023-24,400\n"+
			"EBITDA,2024-25,500\n"+
			"EBITDA %,2024-25,33.3\n")
	writeFixture(t, dataDir, "ROCE External.csv",
		"Particular,Period,Value\n"+
			"EBIT,2024-25,300\n"+
			"Average capital employed,2024-25,2000\n")
	writeFixture(t, dataDir, "ROCE Internal.csv",
		"Category,Port,Line Item,Period,Value\n"+
			"Domestic,Mundra,EBIT,2024-25,180\n"+
			"Domestic,Hazira,EBIT,2024-25,120\n")
	writeFixture(t, dataDir, "Volumes.csv",
		"Port,State,Commodity,Entity,Type,Period,Value\n"+
			"Mundra,Dry,Coal,ParentCo,Actual,2024-25,155.4\n"+
			"Hazira,Liquid,Oil,ParentCo,Actual,2024-25,23.1\n"+
			"Dahej,nan,Coal,ParentCo,Actual,2024-25,\n")

	dbPath := filepath.Join(t.TempDir(), "financial.db")
	resolver, err := synonym.Load("")
	require.NoError(t, err)
	require.NoError(t, Build(context.Background(), dbPath, dataDir, resolver))

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck
	return db
}

func TestBuild_PeriodsParsed(t *testing.T) {
	db := buildFixtureDB(t)

	var label string
	var sortKey int
	err := db.QueryRow(
		`SELECT raw_label, sort_key FROM dim_period ORDER BY sort_key DESC LIMIT 1`).
		Scan(&label, &sortKey)
	require.NoError(t, err)
	assert.Equal(t, "2024-25", label)
	assert.Equal(t, 2024, sortKey)
}

func TestBuild_CanonicalNamesApplied(t *testing.T) {
	db := buildFixtureDB(t)

	var canonical string
	err := db.QueryRow(
		`SELECT canonical_name FROM dim_account WHERE name='Revenue from Operations'`).
		Scan(&canonical)
	require.NoError(t, err)
	assert.Equal(t, "Revenue from Operation", canonical)
}

func TestBuild_RatioMetricType(t *testing.T) {
	db := buildFixtureDB(t)

	var metricType string
	err := db.QueryRow(
		`SELECT metric_type FROM dim_account WHERE name='EBITDA %'`).
		Scan(&metricType)
	require.NoError(t, err)
	assert.Equal(t, "ratio", metricType)

	err = db.QueryRow(
		`SELECT metric_type FROM dim_account WHERE name='EBITDA' AND statement_type='PnLAnnual'`).
		Scan(&metricType)
	require.NoError(t, err)
	assert.Equal(t, "absolute", metricType)
}

func TestBuild_NumbersCleaned(t *testing.T) {
	db := buildFixtureDB(t)

	var value float64
	err := db.QueryRow(
		`SELECT f.value FROM fact_pnl_annual f
		 JOIN dim_account a ON f.account_id=a.account_id
		 JOIN dim_period p ON p.period_id=f.period_id
		 WHERE a.canonical_name='Revenue from Operation' AND p.raw_label='2024-25'`).
		Scan(&value)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, value)
}

func TestBuild_InternalROCEDimensions(t *testing.T) {
	db := buildFixtureDB(t)

	var ports int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM dim_port`).Scan(&ports))
	assert.Equal(t, 3, ports) // Mundra, Hazira, Dahej

	var ebitSum float64
	err := db.QueryRow(
		`SELECT SUM(fri.value) FROM fact_roce_internal fri
		 JOIN dim_account a ON fri.account_id=a.account_id AND a.canonical_name='EBIT'`).
		Scan(&ebitSum)
	require.NoError(t, err)
	assert.Equal(t, 300.0, ebitSum)
}

func TestBuild_VolumesSkipInvalidDimValues(t *testing.T) {
	db := buildFixtureDB(t)

	// "nan" cargo type must not become a dimension row; the fact row still
	// lands with a NULL cargo type.
	var cargoTypes int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM dim_cargo_type`).Scan(&cargoTypes))
	assert.Equal(t, 2, cargoTypes)

	var facts int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM fact_volume`).Scan(&facts))
	assert.Equal(t, 3, facts)

	var nullCargo int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM fact_volume WHERE cargo_type_id IS NULL`).Scan(&nullCargo))
	assert.Equal(t, 1, nullCargo)
}

func TestBuild_ViewsQueryable(t *testing.T) {
	db := buildFixtureDB(t)

	var margin float64
	err := db.QueryRow(
		`SELECT ebitda_margin FROM view_ebitda_margin WHERE period='2024-25'`).
		Scan(&margin)
	require.NoError(t, err)
	assert.InDelta(t, 500.0/1500.0, margin, 1e-9)

	var roce float64
	err = db.QueryRow(`SELECT roce FROM view_roce WHERE period='2024-25'`).Scan(&roce)
	require.NoError(t, err)
	assert.InDelta(t, 300.0/2000.0, roce, 1e-9)
}

func TestBuild_MissingFilesTolerated(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	resolver, err := synonym.Load("")
	require.NoError(t, err)

	require.NoError(t, Build(context.Background(), dbPath, t.TempDir(), resolver))

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM dim_period`).Scan(&n))
	assert.Zero(t, n)
}

func TestParsePeriodLabel(t *testing.T) {
	start, end, ok := parsePeriodLabel("2024-25")
	require.True(t, ok)
	assert.Equal(t, 2024, start)
	assert.Equal(t, 2025, end)

	start, end, ok = parsePeriodLabel("2023")
	require.True(t, ok)
	assert.Equal(t, 2023, start)
	assert.Equal(t, 2023, end)

	_, _, ok = parsePeriodLabel("Q1 FY20")
	assert.False(t, ok)
}

func TestCleanNumber(t *testing.T) {
	v := cleanNumber(`"1,234.5"`)
	require.NotNil(t, v)
	assert.Equal(t, 1234.5, *v)

	assert.Nil(t, cleanNumber(""))
	assert.Nil(t, cleanNumber("n/a"))
}
