// Package intent extracts query signals from raw question text.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/finqa-cli/internal/synonym"
)

var (
	fiscalLabelRe = regexp.MustCompile(`20\d{2}-\d{2}`)
	bareYearRe    = regexp.MustCompile(`20\d{2}`)
	topNRe        = regexp.MustCompile(`top\s+(\d+)`)
	lastNYearsRe  = regexp.MustCompile(`last\s+(\d+)\s+years`)
)

// Intent is the immutable record of everything the analyzer extracted
// from one question. Constructed once per request, never mutated.
type Intent struct {
	Accounts []string // canonical names found, dictionary order
	Periods  []string // explicit fiscal labels, e.g. "2024-25"
	Years    []string // bare four-digit years; weak signal, never resolved

	GroupByPort bool // "by port" / "per port"
	RankPorts   bool // ("top" or "rank") and "port"
	RankYears   bool // "rank years" or ("rank" and "years")
	AllYears    bool // "all years" / "each year" / "every year"
	TopN        int  // 0 when absent

	Lower string // lower-cased question for fallback keyword checks
}

// Analyzer derives Intents from question text using the synonym resolver.
type Analyzer struct {
	synonyms *synonym.Resolver
}

func NewAnalyzer(r *synonym.Resolver) *Analyzer {
	return &Analyzer{synonyms: r}
}

// Analyze extracts all signals from the question. No I/O: latest-period
// resolution happens lazily downstream, only when no explicit period was
// found.
func (a *Analyzer) Analyze(question string) Intent {
	lower := strings.ToLower(question)

	periods := fiscalLabelRe.FindAllString(question, -1)
	var years []string
	for _, y := range bareYearRe.FindAllString(question, -1) {
		years = append(years, y)
	}

	it := Intent{
		Accounts:    a.synonyms.DetectAccounts(question),
		Periods:     periods,
		Years:       years,
		GroupByPort: strings.Contains(lower, "by port") || strings.Contains(lower, "per port"),
		RankYears:   strings.Contains(lower, "rank years") || (strings.Contains(lower, "rank") && strings.Contains(lower, "years")),
		AllYears:    strings.Contains(lower, "all years") || strings.Contains(lower, "each year") || strings.Contains(lower, "every year"),
		RankPorts:   (strings.Contains(lower, "top") || strings.Contains(lower, "rank")) && strings.Contains(lower, "port"),
		Lower:       lower,
	}

	if m := topNRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			it.TopN = n
		}
	}

	return it
}

// LastNYears parses "last N years" phrasing, returning def when absent.
func LastNYears(lower string, def int) int {
	if m := lastNYearsRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return def
}

// ContainsAny reports whether lower contains any of the keywords.
func ContainsAny(lower string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
