// Package ingest loads the CSV/XLSX dataset into the SQLite star schema
// the query layer reads from.
package ingest

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/finqa-cli/internal/synonym"
)

var (
	periodLabelRe  = regexp.MustCompile(`^(20\d{2})-(\d{2})`)
	bareYearRe     = regexp.MustCompile(`^(20\d{2})`)
	numericCleanRe = regexp.MustCompile(`[,"]`)
)

// Builder holds the ingestion state for one database build.
type Builder struct {
	db       *sql.DB
	synonyms *synonym.Resolver
	dataDir  string
}

// Build creates the schema at dbPath and loads every dataset file found
// in dataDir. Missing files are skipped; the schema and views are always
// created.
func Build(ctx context.Context, dbPath, dataDir string, resolver *synonym.Resolver) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return eris.Wrap(err, "ingest: open database")
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return eris.Wrap(err, "ingest: create schema")
	}

	b := &Builder{db: db, synonyms: resolver, dataDir: dataDir}

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"BalanceSheet", b.balanceSheet},
		{"CashFlowStatement", b.cashFlow},
		{"Consolidated PnL", b.consolidatedPnL},
		{"Quarterly PnL", b.quarterlyPnL},
		{"ROCE External", b.roceExternal},
		{"ROCE Internal", b.roceInternal},
		{"RORO", b.roro},
		{"Volumes", b.volumes},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return eris.Wrapf(err, "ingest: %s", step.name)
		}
	}
	return nil
}

// table reads a dataset file by base name, trying .csv then .xlsx, and
// returns header-keyed records. A missing file yields nil records.
func (b *Builder) table(name string) ([]record, error) {
	for _, ext := range []string{".csv", ".xlsx"} {
		path := filepath.Join(b.dataDir, name+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		var (
			rows [][]string
			err  error
		)
		if ext == ".csv" {
			rows, err = readCSV(path)
		} else {
			rows, err = readXLSX(path)
		}
		if err != nil {
			return nil, err
		}
		return toRecords(rows), nil
	}
	zap.L().Debug("dataset file missing, skipped", zap.String("table", name))
	return nil, nil
}

type record map[string]string

func toRecords(rows [][]string) []record {
	if len(rows) < 2 {
		return nil
	}
	header := rows[0]
	out := make([]record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[strings.TrimSpace(col)] = strings.TrimSpace(row[i])
			}
		}
		out = append(out, rec)
	}
	return out
}

// parsePeriodLabel splits a fiscal label like "2024-25" into start and
// end years; a bare year maps to itself.
func parsePeriodLabel(label string) (start, end int, ok bool) {
	if m := periodLabelRe.FindStringSubmatch(label); m != nil {
		start, _ = strconv.Atoi(m[1])
		suffix, _ := strconv.Atoi(m[2])
		end = start/100*100 + suffix
		if end < start { // century rollover safeguard
			end += 100
		}
		return start, end, true
	}
	if m := bareYearRe.FindStringSubmatch(label); m != nil {
		y, _ := strconv.Atoi(m[1])
		return y, y, true
	}
	return 0, 0, false
}

// cleanNumber strips grouping commas and quotes; empty and non-numeric
// strings become NULL.
func cleanNumber(s string) *float64 {
	s = strings.TrimSpace(numericCleanRe.ReplaceAllString(s, ""))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func (b *Builder) ensurePeriods(ctx context.Context, recs []record) error {
	seen := make(map[string]struct{})
	for _, r := range recs {
		label := r["Period"]
		if label == "" {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}

		var sortKey any
		start, end, ok := parsePeriodLabel(label)
		var startAny, endAny any
		if ok {
			sortKey, startAny, endAny = start, start, end
		}
		_, err := b.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO dim_period(raw_label, start_year, end_year, sort_key) VALUES (?,?,?,?)`,
			label, startAny, endAny, sortKey)
		if err != nil {
			return eris.Wrapf(err, "insert period %s", label)
		}
	}
	return nil
}

func (b *Builder) periodID(ctx context.Context, label string) (any, error) {
	var id int64
	err := b.db.QueryRowContext(ctx,
		`SELECT period_id FROM dim_period WHERE raw_label=?`, label).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "lookup period %s", label)
	}
	return id, nil
}

// upsertAccount returns the id for the (name, statement type) pair,
// creating the row with its canonical name on first sight.
func (b *Builder) upsertAccount(ctx context.Context, name, statementType string, rec record, metricType string) (int64, error) {
	var id int64
	err := b.db.QueryRowContext(ctx,
		`SELECT account_id FROM dim_account WHERE name=? AND statement_type=?`,
		name, statementType).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, eris.Wrapf(err, "lookup account %s", name)
	}

	canonical := b.synonyms.Canonical(name)
	if canonical == "" {
		canonical = name
	}
	if metricType == "" {
		metricType = "absolute"
	}

	res, err := b.db.ExecContext(ctx,
		`INSERT INTO dim_account(name, canonical_name, statement_type, category, sub_category, sub_sub_category, metric_type)
		 VALUES (?,?,?,?,?,?,?)`,
		name, canonical, statementType,
		nullable(rec["Category"]), nullable(rec["SubCategory"]), nullable(rec["SubSubCategory"]),
		metricType)
	if err != nil {
		return 0, eris.Wrapf(err, "insert account %s", name)
	}
	return res.LastInsertId()
}

// ensureDim inserts a value into a single-column dimension and returns a
// name → id map refreshed after the inserts.
func (b *Builder) ensureDim(ctx context.Context, table, idCol string, values map[string]struct{}) (map[string]int64, error) {
	for v := range values {
		if _, err := b.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO "+table+"(name) VALUES (?)", v); err != nil {
			return nil, eris.Wrapf(err, "insert %s %s", table, v)
		}
	}
	rows, err := b.db.QueryContext(ctx, "SELECT "+idCol+", name FROM "+table)
	if err != nil {
		return nil, eris.Wrapf(err, "list %s", table)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, eris.Wrapf(err, "scan %s", table)
		}
		out[name] = id
	}
	return out, eris.Wrapf(rows.Err(), "list %s", table)
}

// ensurePorts is ensureDim for dim_port, which names its column port_name.
func (b *Builder) ensurePorts(ctx context.Context, values map[string]struct{}) (map[string]int64, error) {
	for v := range values {
		if _, err := b.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO dim_port(port_name) VALUES (?)`, v); err != nil {
			return nil, eris.Wrapf(err, "insert port %s", v)
		}
	}
	rows, err := b.db.QueryContext(ctx, `SELECT port_id, port_name FROM dim_port`)
	if err != nil {
		return nil, eris.Wrap(err, "list ports")
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, eris.Wrap(err, "scan port")
		}
		out[name] = id
	}
	return out, eris.Wrap(rows.Err(), "list ports")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func distinct(recs []record, col string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, r := range recs {
		v := strings.TrimSpace(r[col])
		if v == "" || strings.EqualFold(v, "nan") || strings.EqualFold(v, "none") {
			continue
		}
		out[v] = struct{}{}
	}
	return out
}
