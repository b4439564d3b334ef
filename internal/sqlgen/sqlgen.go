// Package sqlgen builds parameterized SQL for each recognized query shape.
package sqlgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/finqa-cli/internal/intent"
)

// Status reports the outcome of shape selection.
type Status string

const (
	StatusOK        Status = "OK"
	StatusNoAccount Status = "NO_ACCOUNT"
)

// Bundle pairs SQL text with its positional parameters.
type Bundle struct {
	SQL  string
	Args []any
}

// PeriodSource resolves the latest fiscal period; satisfied by the store.
type PeriodSource interface {
	LatestPeriod(ctx context.Context) (string, error)
}

// factTableFor maps canonical names to their source fact table. Anything
// unmapped defaults to the annual P&L table.
var factTableFor = map[string]string{
	"EBITDA":                   "fact_pnl_annual",
	"Revenue from Operation":   "fact_pnl_annual",
	"EBIT":                     "fact_roce_external",
	"Average capital employed": "fact_roce_external",
	"Total Cargo (MMT)":        "fact_pnl_quarterly",
}

// cargoTypes are the filterable cargo-type keywords, stored capitalized in
// dim_cargo_type.
var cargoTypes = []string{"dry", "crude", "liquid", "container", "cars"}

var titleCaser = cases.Title(language.English)

// Synthesizer chooses exactly one SQL shape per analyzed question.
type Synthesizer struct {
	periods PeriodSource
}

func New(periods PeriodSource) *Synthesizer {
	return &Synthesizer{periods: periods}
}

// Build returns the SQL bundle for the intent. StatusNoAccount means the
// question is out of domain. The latest period is fetched only when no
// explicit period constrains the query.
func (s *Synthesizer) Build(ctx context.Context, it intent.Intent) (*Bundle, Status, error) {
	// Cargo volume grouped by port, with or without an account match.
	volumeWords := intent.ContainsAny(it.Lower, "cargo", "volume")
	if (it.GroupByPort && volumeWords) ||
		(len(it.Accounts) == 0 && strings.Contains(it.Lower, "port") && volumeWords) {
		return s.portVolumes(ctx, it)
	}

	if len(it.Accounts) == 0 {
		return nil, StatusNoAccount, nil
	}
	account := it.Accounts[0]

	if it.RankPorts && account == "EBIT" {
		return s.portEBITRanking(ctx, it)
	}

	if intent.ContainsAny(it.Lower, "ebit per mmt", "ebitda per mmt", "ebit per cargo") {
		return s.portEfficiency(ctx, it)
	}

	if strings.Contains(it.Lower, "margin") && strings.Contains(it.Lower, "ebitda") {
		return &Bundle{SQL: "SELECT period, ebitda_margin FROM view_ebitda_margin"}, StatusOK, nil
	}

	if account == "EBIT" && strings.Contains(it.Lower, "roce") {
		return &Bundle{SQL: "SELECT period, roce FROM view_roce"}, StatusOK, nil
	}

	return s.accountLookup(ctx, it, account)
}

// targetPeriods resolves the period filter: ranking and all-years queries
// fetch everything; explicit labels win; a bare year without a fiscal
// label yields no filter fallback; otherwise the latest period is used.
func (s *Synthesizer) targetPeriods(ctx context.Context, it intent.Intent) ([]string, error) {
	if it.RankYears || it.AllYears {
		return nil, nil
	}
	if len(it.Periods) > 0 {
		return it.Periods, nil
	}
	if len(it.Years) > 0 {
		return []string{}, nil
	}
	latest, err := s.periods.LatestPeriod(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "sqlgen: latest period")
	}
	if latest == "" {
		return []string{}, nil
	}
	return []string{latest}, nil
}

// singlePeriod picks the first explicit label, falling back to the latest.
func (s *Synthesizer) singlePeriod(ctx context.Context, it intent.Intent) (string, error) {
	if len(it.Periods) > 0 {
		return it.Periods[0], nil
	}
	latest, err := s.periods.LatestPeriod(ctx)
	if err != nil {
		return "", eris.Wrap(err, "sqlgen: latest period")
	}
	return latest, nil
}

func (s *Synthesizer) portVolumes(ctx context.Context, it intent.Intent) (*Bundle, Status, error) {
	var cargoFilter string
	for _, ct := range cargoTypes {
		if strings.Contains(it.Lower, ct) {
			cargoFilter = titleCaser.String(ct)
			break
		}
	}

	period, err := s.singlePeriod(ctx, it)
	if err != nil {
		return nil, "", err
	}
	if period == "" {
		return nil, StatusNoAccount, nil
	}

	sql := "SELECT dp.port_name, SUM(v.volume_value) AS volume FROM fact_volume v " +
		"JOIN dim_port dp ON dp.port_id=v.port_id " +
		"JOIN dim_period p ON p.period_id=v.period_id " +
		"JOIN dim_cargo_type ct ON ct.cargo_type_id=v.cargo_type_id " +
		"WHERE p.raw_label=? "
	args := []any{period}
	if cargoFilter != "" {
		sql += "AND ct.name=? "
		args = append(args, cargoFilter)
	}
	sql += "GROUP BY dp.port_name ORDER BY volume DESC"

	return &Bundle{SQL: sql, Args: args}, StatusOK, nil
}

func (s *Synthesizer) portEBITRanking(ctx context.Context, it intent.Intent) (*Bundle, Status, error) {
	period, err := s.singlePeriod(ctx, it)
	if err != nil {
		return nil, "", err
	}

	limit := 3
	if it.TopN > 0 {
		limit = it.TopN
	}

	// Aggregate EBIT per port across ROCE categories.
	sql := "SELECT dp.port_name, SUM(fri.value) AS ebit FROM fact_roce_internal fri " +
		"JOIN dim_account a ON fri.account_id=a.account_id AND a.canonical_name='EBIT' " +
		"JOIN dim_period p ON p.period_id=fri.period_id " +
		"JOIN dim_port dp ON dp.port_id=fri.port_id " +
		"WHERE p.raw_label=? " +
		fmt.Sprintf("GROUP BY dp.port_name ORDER BY ebit DESC LIMIT %d", limit)

	return &Bundle{SQL: sql, Args: []any{period}}, StatusOK, nil
}

func (s *Synthesizer) portEfficiency(ctx context.Context, it intent.Intent) (*Bundle, Status, error) {
	period, err := s.singlePeriod(ctx, it)
	if err != nil {
		return nil, "", err
	}
	return &Bundle{
		SQL:  "SELECT port_name, ebit_per_mmt FROM view_port_ebit_volume WHERE period=? ORDER BY ebit_per_mmt DESC",
		Args: []any{period},
	}, StatusOK, nil
}

func (s *Synthesizer) accountLookup(ctx context.Context, it intent.Intent, account string) (*Bundle, Status, error) {
	factTable, ok := factTableFor[account]
	if !ok {
		factTable = "fact_pnl_annual"
	}

	targets, err := s.targetPeriods(ctx, it)
	if err != nil {
		return nil, "", err
	}

	// One stable account_id per canonical name to avoid double counting
	// duplicate ingested rows.
	sql := fmt.Sprintf(
		"SELECT p.raw_label AS period, f.value AS value FROM %s f "+
			"JOIN dim_account a ON f.account_id=a.account_id "+
			"JOIN dim_period p ON p.period_id=f.period_id "+
			"WHERE a.canonical_name=? AND a.account_id = (SELECT MIN(account_id) FROM dim_account WHERE canonical_name=?)",
		factTable)
	args := []any{account, account}

	if len(targets) > 0 {
		sql += " AND p.raw_label IN (" + placeholders(len(targets)) + ")"
		for _, t := range targets {
			args = append(args, t)
		}
	}

	order := "ORDER BY p.sort_key DESC"
	if it.RankYears {
		order = "ORDER BY value DESC"
	}
	limit := ""
	if it.TopN > 0 && strings.Contains(it.Lower, "top") && !strings.Contains(it.Lower, "port") {
		// Top periods by value overrides recency ordering.
		order = "ORDER BY value DESC"
		limit = fmt.Sprintf(" LIMIT %d", it.TopN)
	}
	sql += " GROUP BY p.raw_label, p.sort_key " + order + limit

	return &Bundle{SQL: sql, Args: args}, StatusOK, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
