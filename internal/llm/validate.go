package llm

import (
	"regexp"
	"strings"
)

var (
	// Allow SELECT and WITH (CTE) statements only.
	safeStartRe = regexp.MustCompile(`(?i)^\s*(SELECT|WITH)\b`)
	forbiddenRe = regexp.MustCompile(`(?i)\b(UPDATE|DELETE|INSERT|DROP|ALTER|CREATE\s+TABLE)\b`)

	cteNameRe   = regexp.MustCompile(`(?i)\bWITH\s+(\w+)\s+AS|,\s*(\w+)\s+AS`)
	stringLitRe = regexp.MustCompile(`'[^']*'`)
	fromJoinRe  = regexp.MustCompile(`(?i)FROM\s+(\w+)|JOIN\s+(\w+)`)
)

// canonicalRepairs fix the account-name abbreviations the model tends to
// produce.
var canonicalRepairs = [][2]string{
	{`canonical_name='Revenue'`, `canonical_name='Revenue from Operation'`},
	{`canonical_name="Revenue"`, `canonical_name='Revenue from Operation'`},
	{`canonical_name='EBITDA Margin'`, `canonical_name IN ('EBITDA Margin','EBITDA %','EBIDTA %')`},
	{`canonical_name="EBITDA Margin"`, `canonical_name IN ('EBITDA Margin','EBITDA %','EBIDTA %')`},
}

// sanitize strips Markdown fences, collapses the statement to one line,
// and applies the canonical-name repairs.
func sanitize(raw string) string {
	sql := strings.TrimSpace(raw)
	if strings.HasPrefix(sql, "```") {
		lines := strings.Split(sql, "\n")
		if len(lines) > 2 {
			sql = strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
		} else {
			sql = strings.TrimSpace(strings.Trim(sql, "`"))
		}
	}
	sql = strings.Join(strings.Fields(sql), " ")
	for _, r := range canonicalRepairs {
		sql = strings.ReplaceAll(sql, r[0], r[1])
	}
	return sql
}

// validate runs the safety gate in order: known-wrong-table guard, first
// keyword, forbidden DML/DDL, then table-name allow list with CTE names
// and string literals excluded.
func validate(sql string, knownTables map[string]struct{}) GenStatus {
	if strings.Contains(sql, "fact_balance_sheet") &&
		(strings.Contains(sql, "EBIT") || strings.Contains(sql, "Average capital employed")) {
		return StatusBadTable
	}
	if !safeStartRe.MatchString(sql) || forbiddenRe.MatchString(sql) {
		return StatusUnsafe
	}

	cteNames := make(map[string]struct{})
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "WITH") {
		for _, m := range cteNameRe.FindAllStringSubmatch(sql, -1) {
			for _, name := range m[1:] {
				if name != "" {
					cteNames[strings.ToLower(name)] = struct{}{}
				}
			}
		}
	}

	// Strip string literals first to avoid false identifier matches.
	noStrings := stringLitRe.ReplaceAllString(sql, "")
	for _, m := range fromJoinRe.FindAllStringSubmatch(noStrings, -1) {
		for _, name := range m[1:] {
			if name == "" {
				continue
			}
			if _, cte := cteNames[strings.ToLower(name)]; cte {
				continue
			}
			if _, known := knownTables[name]; !known {
				return StatusUnknownTable
			}
		}
	}
	return StatusOK
}
