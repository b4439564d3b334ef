// Package quality profiles the ingested database: row counts, missing
// metric values, duplicate canonical accounts, and reconciliation of the
// port-level EBIT against the externally reported figure.
package quality

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/finqa-cli/internal/store"
)

// metricColumns lists the nullable metric columns scanned per fact table.
var metricColumns = []struct {
	Table   string
	Columns []string
}{
	{"fact_balance_sheet", []string{"value"}},
	{"fact_cash_flow", []string{"value"}},
	{"fact_pnl_annual", []string{"value"}},
	{"fact_pnl_quarterly", []string{"value"}},
	{"fact_roce_external", []string{"value"}},
	{"fact_roce_internal", []string{"value"}},
	{"fact_roro", []string{"value", "number_of_cars"}},
	{"fact_volume", []string{"volume_value"}},
}

// TableCount pairs a table name with its row count.
type TableCount struct {
	Table string
	Rows  int64
}

// MissingScan records NULL counts per metric column of one table.
type MissingScan struct {
	Table   string
	Missing map[string]int64
}

// Reconciliation compares the summed port-level EBIT with the external
// EBIT for one period.
type Reconciliation struct {
	Period   string
	Internal float64
	External float64
	Diff     float64
	PctDiff  *float64
}

// Report is the output of a full profiling run.
type Report struct {
	Counts          []TableCount
	Missing         []MissingScan
	DuplicateNames  int64
	Reconciliations []Reconciliation
}

// Profiler runs data quality checks against a read-only store.
type Profiler struct {
	store store.Store
}

func New(st store.Store) *Profiler {
	return &Profiler{store: st}
}

func (p *Profiler) Run(ctx context.Context) (*Report, error) {
	rep := &Report{}

	counts, err := p.rowCounts(ctx)
	if err != nil {
		return nil, err
	}
	rep.Counts = counts

	for _, m := range metricColumns {
		scan := MissingScan{Table: m.Table, Missing: make(map[string]int64, len(m.Columns))}
		for _, col := range m.Columns {
			n, err := p.count(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NULL", m.Table, col))
			if err != nil {
				return nil, eris.Wrapf(err, "quality: missing scan %s.%s", m.Table, col)
			}
			scan.Missing[col] = n
		}
		rep.Missing = append(rep.Missing, scan)
	}

	dups, err := p.count(ctx, `
		SELECT COUNT(*) FROM (
			SELECT canonical_name FROM dim_account
			GROUP BY canonical_name HAVING COUNT(*) > 1
		)`)
	if err != nil {
		return nil, eris.Wrap(err, "quality: duplicate accounts")
	}
	rep.DuplicateNames = dups

	recon, err := p.reconcileROCE(ctx)
	if err != nil {
		return nil, err
	}
	rep.Reconciliations = recon

	return rep, nil
}

func (p *Profiler) rowCounts(ctx context.Context) ([]TableCount, error) {
	tables, err := p.store.SchemaTables(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "quality: list tables")
	}
	out := make([]TableCount, 0, len(tables))
	for _, t := range tables {
		if strings.HasPrefix(t.Name, "sqlite_") || strings.HasPrefix(t.Name, "view_") {
			continue
		}
		n, err := p.count(ctx, "SELECT COUNT(*) FROM "+t.Name)
		if err != nil {
			return nil, eris.Wrapf(err, "quality: count %s", t.Name)
		}
		out = append(out, TableCount{Table: t.Name, Rows: n})
	}
	return out, nil
}

func (p *Profiler) count(ctx context.Context, query string) (int64, error) {
	rows, err := p.store.Query(ctx, query)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	v, _ := store.Float(rows[0][0])
	return int64(v), nil
}

// reconcileROCE sums the port-level internal EBIT per period and compares
// it with the single externally reported EBIT figure.
func (p *Profiler) reconcileROCE(ctx context.Context) ([]Reconciliation, error) {
	rows, err := p.store.Query(ctx, `
		SELECT p.raw_label,
		       (SELECT SUM(fri.value) FROM fact_roce_internal fri
		        JOIN dim_account ai ON fri.account_id = ai.account_id AND ai.canonical_name = 'EBIT'
		        WHERE fri.period_id = p.period_id) AS internal_ebit_sum,
		       (SELECT fe.value FROM fact_roce_external fe
		        JOIN dim_account ae ON fe.account_id = ae.account_id AND ae.canonical_name = 'EBIT'
		        WHERE fe.period_id = p.period_id) AS external_ebit
		FROM dim_period p ORDER BY p.sort_key DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "quality: roce reconciliation")
	}

	var out []Reconciliation
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		label, _ := store.String(row[0])
		internal, okI := store.Float(row[1])
		external, okE := store.Float(row[2])
		if !okI || !okE {
			continue
		}
		rec := Reconciliation{
			Period:   label,
			Internal: internal,
			External: external,
			Diff:     internal - external,
		}
		if external != 0 {
			pct := rec.Diff / external
			rec.PctDiff = &pct
		}
		out = append(out, rec)
	}
	return out, nil
}

// Write renders the report in the plain text layout the profile command
// prints.
func (r *Report) Write(w io.Writer) {
	fmt.Fprintln(w, "Row counts:")
	for _, c := range r.Counts {
		fmt.Fprintf(w, "  %s: %d\n", c.Table, c.Rows)
	}
	fmt.Fprintln(w, "\nMissing value scan:")
	for _, m := range r.Missing {
		parts := make([]string, 0, len(m.Missing))
		for _, meta := range metricColumns {
			if meta.Table != m.Table {
				continue
			}
			for _, col := range meta.Columns {
				parts = append(parts, fmt.Sprintf("%s=%d", col, m.Missing[col]))
			}
		}
		fmt.Fprintf(w, "  %s: %s\n", m.Table, strings.Join(parts, ", "))
	}
	fmt.Fprintf(w, "\nDuplicate canonical accounts: %d\n", r.DuplicateNames)
	fmt.Fprintln(w, "\nROCE reconciliation (internal vs external):")
	for _, rec := range r.Reconciliations {
		pctStr := "n/a"
		if rec.PctDiff != nil {
			pctStr = fmt.Sprintf("%.2f%%", *rec.PctDiff*100)
		}
		fmt.Fprintf(w, "  %s: internal=%.2f external=%.2f diff=%.2f (%s)\n",
			rec.Period, rec.Internal, rec.External, rec.Diff, pctStr)
	}
}
