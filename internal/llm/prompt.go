package llm

import (
	"fmt"
	"strings"

	"github.com/sells-group/finqa-cli/internal/store"
)

// workedExamples are question→SQL pairs shown to the model.
var workedExamples = [][2]string{
	{
		"What was EBITDA in 2024-25?",
		"SELECT p.raw_label AS period, f.value AS ebitda FROM fact_pnl_annual f JOIN dim_account a ON f.account_id=a.account_id JOIN dim_period p ON p.period_id=f.period_id WHERE a.canonical_name='EBITDA' AND p.raw_label='2024-25';",
	},
	{
		"Rank years by Revenue from Operation",
		"SELECT p.raw_label AS period, f.value AS revenue FROM fact_pnl_annual f JOIN dim_account a ON f.account_id=a.account_id JOIN dim_period p ON p.period_id=f.period_id WHERE a.canonical_name='Revenue from Operation' ORDER BY revenue DESC;",
	},
	{
		"Year over year growth in EBITDA between 2023-24 and 2024-25",
		"WITH vals AS (SELECT p.raw_label AS period, f.value FROM fact_pnl_annual f JOIN dim_account a ON f.account_id=a.account_id JOIN dim_period p ON p.period_id=f.period_id WHERE a.canonical_name='EBITDA' AND p.raw_label IN ('2023-24','2024-25')) SELECT v1.period AS current_period, v1.value AS current_ebitda, v0.value AS prior_ebitda, (v1.value - v0.value)/v0.value AS yoy_growth FROM vals v1 JOIN vals v0 ON v0.period='2023-24' WHERE v1.period='2024-25';",
	},
}

// tableHints steer specific metrics to their correct fact table; the model
// otherwise tends to look up EBIT and capital employed in the balance
// sheet.
const tableHints = `Canonical table mapping hints:
EBIT -> fact_roce_external (not balance sheet)
Average capital employed -> fact_roce_external
Revenue from Operation -> fact_pnl_annual
EBITDA -> fact_pnl_annual
EBITDA Margin -> view_ebitda_margin (period, ebitda_margin)
`

// buildPrompt assembles the schema-grounded generation prompt.
func buildPrompt(question string, tables []store.TableSchema) string {
	var b strings.Builder
	b.WriteString("You are a strict SQL generator. Return ONLY one SQL statement. ")
	b.WriteString("Rules: Use only tables listed. No modification statements. Avoid SELECT *. Parameterize literal years directly. ")
	b.WriteString("Prefer correct fact tables per canonical mapping; do NOT use fact_balance_sheet for EBIT or average capital employed.\n")

	b.WriteString("Schema:\n")
	for _, t := range tables {
		fmt.Fprintf(&b, "%s(%s)\n", t.Name, strings.Join(t.Columns, ", "))
	}
	b.WriteString("\n")
	b.WriteString(tableHints)

	b.WriteString("Examples:\n")
	for _, ex := range workedExamples {
		fmt.Fprintf(&b, "Q: %s\nSQL: %s\n", ex[0], ex[1])
	}

	fmt.Fprintf(&b, "\nQuestion: %s\nSQL:", question)
	return b.String()
}
