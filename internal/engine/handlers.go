package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sells-group/finqa-cli/internal/format"
	"github.com/sells-group/finqa-cli/internal/intent"
	"github.com/sells-group/finqa-cli/internal/store"
)

// yoyGrowth computes year-over-year growth for a single account between
// two explicit periods. Never delegated to the LLM.
func (e *Engine) yoyGrowth(ctx context.Context, q *query) (Answer, bool, error) {
	if !intent.ContainsAny(q.it.Lower, "year over year growth", "yoy growth") {
		return skip()
	}

	if len(q.it.Periods) < 2 {
		return q.answered("Specify two fiscal periods for year over year growth.")
	}
	p0, p1 := q.it.Periods[0], q.it.Periods[1]

	accounts := q.it.Accounts
	if len(accounts) == 0 {
		// Keyword fallback for the two most common metrics.
		switch {
		case strings.Contains(q.it.Lower, "ebitda"):
			accounts = []string{"EBITDA"}
		case strings.Contains(q.it.Lower, "revenue"):
			accounts = []string{"Revenue from Operation"}
		}
	}
	if len(accounts) != 1 {
		return skip()
	}
	account := accounts[0]

	rows, err := e.store.Query(ctx,
		"SELECT p.raw_label, SUM(f.value) AS value FROM fact_pnl_annual f "+
			"JOIN dim_account a ON f.account_id=a.account_id "+
			"JOIN dim_period p ON p.period_id=f.period_id "+
			"WHERE a.canonical_name=? AND p.raw_label IN (?, ?) "+
			"GROUP BY p.raw_label",
		account, p0, p1)
	if err != nil {
		return Answer{}, false, err
	}
	if len(rows) == 0 {
		return q.answered("No data found.")
	}
	if len(rows) != 2 {
		return q.answered("Data unavailable for requested periods.")
	}

	vals := make(map[string]*float64, 2)
	for _, r := range rows {
		label, _ := store.String(r[0])
		if v, ok := store.Float(r[1]); ok {
			f := v
			vals[label] = &f
		} else {
			vals[label] = nil
		}
	}
	v0, v1 := vals[p0], vals[p1]
	if v0 == nil || v1 == nil || *v0 == 0 {
		return q.answered(fmt.Sprintf("Insufficient data to compute YOY growth for %s.", account))
	}

	growth := (*v1 - *v0) / *v0
	return q.answered(fmt.Sprintf("%s YOY growth from %s to %s: %.2f%% (from %s to %s).",
		account, p0, p1, growth*100, format.Num(*v0), format.Num(*v1)))
}

// capitalEBITTrend compares average capital employed and EBIT per period
// with ROCE inline; preempts the LLM.
func (e *Engine) capitalEBITTrend(ctx context.Context, q *query) (Answer, bool, error) {
	if !(strings.Contains(q.it.Lower, "average capital employed") &&
		strings.Contains(q.it.Lower, "ebit") &&
		intent.ContainsAny(q.it.Lower, "trend", "change", "compare", "explain")) {
		return skip()
	}

	n := intent.LastNYears(q.it.Lower, 4)

	// Aggregate per period to avoid duplicate entity/row explosions.
	capRows, err := e.roceSeries(ctx, "Average capital employed")
	if err != nil {
		return Answer{}, false, err
	}
	ebitRows, err := e.roceSeries(ctx, "EBIT")
	if err != nil {
		return Answer{}, false, err
	}

	capMap := seriesMap(capRows)
	ebitMap := seriesMap(ebitRows)

	// Intersect periods preserving the capital series' recency order.
	var periods []string
	for _, r := range capRows {
		label, _ := store.String(r[0])
		if _, ok := ebitMap[label]; ok {
			periods = append(periods, label)
		}
		if len(periods) == n {
			break
		}
	}
	if len(periods) == 0 {
		return q.answered("No data available to compare EBIT and average capital employed.")
	}

	var parts []string
	for _, p := range periods {
		capVal, hasCap := capMap[p]
		ebitVal := ebitMap[p]
		roce := "n/a"
		if hasCap && capVal != 0 {
			roce = fmt.Sprintf("%.3f", ebitVal/capVal)
		}
		capStr := "n/a"
		if hasCap {
			capStr = format.Num(capVal)
		}
		parts = append(parts, fmt.Sprintf("%s: EBIT %s; Avg Cap Empl %s; ROCE %s", p, format.Num(ebitVal), capStr, roce))
	}
	return q.answered(strings.Join(parts, " | "))
}

func (e *Engine) roceSeries(ctx context.Context, canonical string) ([]store.Row, error) {
	return e.store.Query(ctx,
		"SELECT p.raw_label, SUM(f.value) AS value FROM fact_roce_external f "+
			"JOIN dim_account a ON f.account_id=a.account_id "+
			"JOIN dim_period p ON p.period_id=f.period_id "+
			"WHERE a.canonical_name=? "+
			"GROUP BY p.period_id, p.raw_label "+
			"ORDER BY p.sort_key DESC",
		canonical)
}

// revenueMarginTrend renders revenue and EBITDA margin for the last N
// years in one line; falls through when either series is empty.
func (e *Engine) revenueMarginTrend(ctx context.Context, q *query) (Answer, bool, error) {
	if !(intent.ContainsAny(q.it.Lower, "compare", "trend") &&
		strings.Contains(q.it.Lower, "revenue") &&
		strings.Contains(q.it.Lower, "margin")) {
		return skip()
	}

	n := intent.LastNYears(q.it.Lower, 4)
	labels, err := e.store.PeriodLabels(ctx)
	if err != nil {
		return Answer{}, false, err
	}
	if len(labels) > n {
		labels = labels[:n]
	}
	if len(labels) == 0 {
		return skip()
	}

	ph := placeholders(len(labels))
	args := labelArgs(labels)

	revRows, err := e.store.Query(ctx,
		"SELECT p.raw_label, f.value FROM fact_pnl_annual f "+
			"JOIN dim_account a ON f.account_id=a.account_id "+
			"JOIN dim_period p ON p.period_id=f.period_id "+
			"WHERE a.canonical_name='Revenue from Operation' "+
			"AND p.raw_label IN ("+ph+") "+
			"AND a.account_id=(SELECT MIN(account_id) FROM dim_account WHERE canonical_name='Revenue from Operation')",
		args...)
	if err != nil {
		return Answer{}, false, err
	}
	marginRows, err := e.store.Query(ctx,
		"SELECT period, ebitda_margin FROM view_ebitda_margin WHERE period IN ("+ph+")", args...)
	if err != nil {
		return Answer{}, false, err
	}

	revMap := seriesMap(revRows)
	marginMap := seriesMap(marginRows)

	var parts []string
	for _, p := range labels {
		r, okR := revMap[p]
		m, okM := marginMap[p]
		if !okR || !okM {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: Revenue %s; EBITDA Margin %s", p, format.Num(r), format.Num(m)))
	}
	if len(parts) == 0 {
		return skip()
	}
	return q.answered(strings.Join(parts, " | "))
}

// multiMetric bundles Revenue, EBITDA, and the derived margin for the
// requested or latest periods. Guarded upstream so comparative questions
// still reach the LLM.
func (e *Engine) multiMetric(ctx context.Context, q *query) (Answer, bool, error) {
	lower := q.it.Lower
	multi := (strings.Contains(lower, "ebitda") && strings.Contains(lower, "revenue")) ||
		intent.ContainsAny(lower, "summary", "performance", "ebitda margin")
	if !multi || intent.ContainsAny(lower, "growth", "compare", "change", "trend") {
		return skip()
	}

	var targets []string
	switch {
	case len(q.it.Periods) > 0:
		targets = q.it.Periods
	case len(q.it.Years) > 0:
		// A bare year is too weak to resolve; fetch everything.
	default:
		latest, err := e.store.LatestPeriod(ctx)
		if err != nil {
			return Answer{}, false, err
		}
		targets = []string{latest}
	}

	// One stable account_id per metric to avoid duplicate summation.
	sql := "SELECT p.raw_label, " +
		"(SELECT f1.value FROM fact_pnl_annual f1 JOIN dim_account a1 ON f1.account_id=a1.account_id " +
		"WHERE a1.canonical_name='Revenue from Operation' AND a1.account_id=(SELECT MIN(account_id) FROM dim_account WHERE canonical_name='Revenue from Operation') " +
		"AND f1.period_id=p.period_id) AS revenue, " +
		"(SELECT f2.value FROM fact_pnl_annual f2 JOIN dim_account a2 ON f2.account_id=a2.account_id " +
		"WHERE a2.canonical_name='EBITDA' AND a2.account_id=(SELECT MIN(account_id) FROM dim_account WHERE canonical_name='EBITDA') " +
		"AND f2.period_id=p.period_id) AS ebitda " +
		"FROM dim_period p"
	var args []any
	if len(targets) > 0 {
		sql += " WHERE p.raw_label IN (" + placeholders(len(targets)) + ")"
		args = labelArgs(targets)
	}
	sql += " ORDER BY p.sort_key DESC"

	rows, err := e.store.Query(ctx, sql, args...)
	if err != nil {
		return Answer{}, false, err
	}
	if len(rows) == 0 {
		return q.answered("No data available for the requested periods.")
	}

	var parts []string
	for _, r := range rows {
		label, _ := store.String(r[0])
		revenue, okRev := store.Float(r[1])
		ebitda, okEbt := store.Float(r[2])

		revStr, ebtStr, marginStr := "n/a", "n/a", "n/a"
		if okRev {
			revStr = format.Num(revenue)
		}
		if okEbt {
			ebtStr = format.Num(ebitda)
		}
		if okRev && okEbt && revenue != 0 {
			marginStr = format.Num(ebitda / revenue)
		}
		parts = append(parts, fmt.Sprintf("%s: Revenue %s; EBITDA %s; Margin %s", label, revStr, ebtStr, marginStr))
	}
	return q.answered(strings.Join(parts, " | "))
}

// correlateRevenueMargin computes the Pearson correlation between
// consecutive-period revenue growth and EBITDA-margin delta. Evaluated
// ahead of the LLM path as a deliberate override.
func (e *Engine) correlateRevenueMargin(ctx context.Context, q *query) (Answer, bool, error) {
	lower := q.it.Lower
	if !(strings.Contains(lower, "correlation") && strings.Contains(lower, "revenue") &&
		intent.ContainsAny(lower, "margin", "ebitda")) {
		return skip()
	}

	revRows, err := e.store.Query(ctx,
		"SELECT p.raw_label, f.value FROM fact_pnl_annual f "+
			"JOIN dim_account a ON f.account_id=a.account_id "+
			"JOIN dim_period p ON p.period_id=f.period_id "+
			"WHERE a.canonical_name='Revenue from Operation' "+
			"AND a.account_id=(SELECT MIN(account_id) FROM dim_account WHERE canonical_name='Revenue from Operation') "+
			"ORDER BY p.sort_key ASC")
	if err != nil {
		return Answer{}, false, err
	}
	marginRows, err := e.store.Query(ctx,
		"SELECT period, ebitda_margin FROM view_ebitda_margin ORDER BY period ASC")
	if err != nil {
		return Answer{}, false, err
	}

	revMap := seriesMap(revRows)
	marginMap := seriesMap(marginRows)

	var periods []string
	for p := range revMap {
		if _, ok := marginMap[p]; ok {
			periods = append(periods, p)
		}
	}
	sort.Strings(periods)
	if len(periods) < 3 {
		return q.answered("Insufficient data for correlation analysis.")
	}

	var growth, deltas []float64
	for i := 1; i < len(periods); i++ {
		prevRev := revMap[periods[i-1]]
		if prevRev == 0 {
			continue
		}
		growth = append(growth, (revMap[periods[i]]-prevRev)/prevRev)
		deltas = append(deltas, marginMap[periods[i]]-marginMap[periods[i-1]])
	}
	if len(growth) < 2 {
		return q.answered("Insufficient consecutive periods for correlation.")
	}

	corr, ok := pearson(growth, deltas)
	if !ok {
		return q.answered("No variation to compute correlation.")
	}

	var interp string
	switch {
	case corr > 0.5:
		interp = "moderately positive"
	case corr > 0.2:
		interp = "weak positive"
	case corr < -0.5:
		interp = "moderately negative"
	case corr < -0.2:
		interp = "weak negative"
	default:
		interp = "little"
	}
	return q.answered(fmt.Sprintf(
		"Correlation between revenue YoY growth and EBITDA margin change: %.3f (%s relationship).",
		corr, interp))
}

// pearson returns the correlation coefficient, or ok=false when either
// series has zero variance.
func pearson(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	var meanX, meanY float64
	for i := range xs {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= n
	meanY /= n

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}
	return cov / math.Sqrt(varX*varY), true
}

// seriesMap indexes (label, value) rows by label, dropping null values.
func seriesMap(rows []store.Row) map[string]float64 {
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		label, okL := store.String(r[0])
		val, okV := store.Float(r[1])
		if okL && okV {
			out[label] = val
		}
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func labelArgs(labels []string) []any {
	args := make([]any, len(labels))
	for i, l := range labels {
		args[i] = l
	}
	return args
}
