// Package format renders raw result tuples as a short natural-language
// sentence.
package format

import (
	"fmt"
	"strings"

	"github.com/sells-group/finqa-cli/internal/store"
)

// Kind tags the rendering rule for a result set. The router classifies
// each question once; the formatter switches on the tag instead of
// re-deriving it from row shape.
type Kind int

const (
	KindDefault Kind = iota
	KindPortRanking
	KindPortVolumes
)

// Shape carries the formatting decisions taken at routing time.
type Shape struct {
	Kind   Kind
	Dedupe bool // margin/roce questions: drop repeated (period, value) pairs
}

// Classify derives the Shape from the question text.
func Classify(question string) Shape {
	lower := strings.ToLower(question)
	s := Shape{
		Dedupe: strings.Contains(lower, "margin") || strings.Contains(lower, "roce"),
	}
	switch {
	case (strings.Contains(lower, "top") || strings.Contains(lower, "rank")) && strings.Contains(lower, "port"):
		s.Kind = KindPortRanking
	case strings.Contains(lower, "port") && strings.Contains(lower, "volume"):
		s.Kind = KindPortVolumes
	}
	return s
}

// Format renders rows under the given shape. Purely a function of its
// inputs; no I/O.
func Format(shape Shape, rows []store.Row) string {
	if len(rows) == 0 {
		return "No matching data found for the requested criteria."
	}

	if shape.Dedupe && len(rows) > 1 && allAtLeastTwoCols(rows) {
		rows = dedupe(rows)
	}

	twoCol := len(rows) > 1 && len(rows[0]) == 2

	switch {
	case shape.Kind == KindPortRanking && twoCol:
		return "Top ports by EBIT: " + joinPairs(rows, func(name string, val float64) string {
			return fmt.Sprintf("%s (%s)", name, Num(val))
		}, ", ")
	case shape.Kind == KindPortVolumes && twoCol:
		return "Cargo volumes by port: " + joinPairs(rows, func(name string, val float64) string {
			return fmt.Sprintf("%s: %s", name, Num(val))
		}, ", ")
	}

	if len(rows) == 1 && len(rows[0]) == 2 {
		period := label(rows[0][0])
		val, ok := store.Float(rows[0][1])
		if !ok {
			return fmt.Sprintf("Data for %s is unavailable.", period)
		}
		return fmt.Sprintf("In %s, the value is %s.", period, Num(val))
	}

	// Multi-period summary, capped to keep answers short.
	capped := rows
	if len(capped) > 6 {
		capped = capped[:6]
	}
	var parts []string
	for _, r := range capped {
		if len(r) < 2 {
			continue
		}
		val, ok := store.Float(r[1])
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", label(r[0]), Num(val)))
	}
	return strings.Join(parts, "; ")
}

// Num renders a value rounded to two decimals.
func Num(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func label(v any) string {
	if s, ok := store.String(v); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func allAtLeastTwoCols(rows []store.Row) bool {
	for _, r := range rows {
		if len(r) < 2 {
			return false
		}
	}
	return true
}

// dedupe keeps the first occurrence of each (first column, second column)
// pair, guarding against join fan-out noise.
func dedupe(rows []store.Row) []store.Row {
	type key struct{ a, b any }
	seen := make(map[key]struct{}, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		k := key{normKey(r[0]), normKey(r[1])}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// normKey collapses scan-type differences so equal values compare equal.
func normKey(v any) any {
	if f, ok := store.Float(v); ok {
		return f
	}
	if s, ok := store.String(v); ok {
		return s
	}
	return v
}

func joinPairs(rows []store.Row, render func(string, float64) string, sep string) string {
	var parts []string
	for _, r := range rows {
		val, ok := store.Float(r[1])
		if !ok {
			continue
		}
		parts = append(parts, render(label(r[0]), val))
	}
	return strings.Join(parts, sep)
}
