// Package engine routes questions through the deterministic heuristics,
// the general SQL synthesizer, and the optional LLM generation path.
package engine

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/finqa-cli/internal/format"
	"github.com/sells-group/finqa-cli/internal/intent"
	"github.com/sells-group/finqa-cli/internal/llm"
	"github.com/sells-group/finqa-cli/internal/sqlgen"
	"github.com/sells-group/finqa-cli/internal/store"
)

// Status is the envelope status. FAIL is reserved for out-of-domain
// questions; every other shortfall is an OK answer with an explanatory
// sentence.
type Status string

const (
	StatusOK   Status = "OK"
	StatusFail Status = "FAIL"
)

// Method reports which path produced the answer. Deterministic paths all
// report "heuristic", including the ones that preempt the LLM.
type Method string

const (
	MethodHeuristic Method = "heuristic"
	MethodLLM       Method = "LLM"
)

// Answer is the envelope returned for every question.
type Answer struct {
	Text   string `json:"answer"`
	Status Status `json:"status"`
	Method Method `json:"method"`
}

const refusalText = "I'm sorry, I can only answer questions about company finance and cargo operations contained in the provided dataset."

// SQLGenerator is the LLM strategy surface the router needs.
type SQLGenerator interface {
	Available() bool
	GenerateSQL(ctx context.Context, question string) (string, llm.GenStatus)
}

// Engine is the top-level query router.
type Engine struct {
	store    store.Store
	analyzer *intent.Analyzer
	synth    *sqlgen.Synthesizer
	llm      SQLGenerator
	rules    []rule
}

// query carries per-request state through the rule chain.
type query struct {
	id       string
	question string
	it       intent.Intent
	method   Method
}

// rule pairs a name with a handler. Handlers report handled=false to fall
// through to the next rule; errors abort the request (store failures are
// the one case allowed to surface).
type rule struct {
	name    string
	handler func(ctx context.Context, q *query) (Answer, bool, error)
}

// answered wraps a successful handler result.
func (q *query) answered(text string) (Answer, bool, error) {
	return Answer{Text: text, Status: StatusOK, Method: q.method}, true, nil
}

// refused is the out-of-domain envelope.
func (q *query) refused() (Answer, bool, error) {
	return Answer{Text: refusalText, Status: StatusFail, Method: q.method}, true, nil
}

// skip falls through to the next rule.
func skip() (Answer, bool, error) {
	return Answer{}, false, nil
}

// New constructs the engine. The rule order is a correctness contract:
// several predicates overlap and earlier deterministic paths must preempt
// the LLM.
func New(st store.Store, analyzer *intent.Analyzer, gen SQLGenerator) *Engine {
	e := &Engine{
		store:    st,
		analyzer: analyzer,
		synth:    sqlgen.New(st),
		llm:      gen,
	}
	e.rules = []rule{
		{"yoy_growth", e.yoyGrowth},
		{"capital_ebit_trend", e.capitalEBITTrend},
		{"revenue_margin_trend", e.revenueMarginTrend},
		{"multi_metric", e.multiMetric},
		{"correlation", e.correlateRevenueMargin},
		{"llm", e.llmGenerate},
		{"heuristic_sql", e.heuristicSQL},
	}
	return e
}

// Ask answers one question. The final rule always handles, so a fallen-
// through chain cannot return an empty envelope.
func (e *Engine) Ask(ctx context.Context, question string) (Answer, error) {
	q := &query{
		id:       uuid.New().String(),
		question: question,
		it:       e.analyzer.Analyze(question),
		method:   MethodHeuristic,
	}

	for _, r := range e.rules {
		ans, handled, err := r.handler(ctx, q)
		if err != nil {
			return Answer{}, err
		}
		if !handled {
			continue
		}
		zap.L().Info("question answered",
			zap.String("query_id", q.id),
			zap.String("rule", r.name),
			zap.String("method", string(ans.Method)),
			zap.String("status", string(ans.Status)),
		)
		return ans, nil
	}

	// Unreachable: heuristic_sql always handles.
	return Answer{Text: refusalText, Status: StatusFail, Method: MethodHeuristic}, nil
}

// llmGenerate requests SQL from the configured provider. Any failure
// (no provider, unsafe SQL, execution error) falls through silently.
func (e *Engine) llmGenerate(ctx context.Context, q *query) (Answer, bool, error) {
	if e.llm == nil || !e.llm.Available() {
		return skip()
	}
	if !intent.ContainsAny(q.it.Lower, "growth", "compare", "change", "trend", "ratio", "correlation", "forecast", "explain") {
		return skip()
	}

	sql, status := e.llm.GenerateSQL(ctx, q.question)
	if status != llm.StatusOK || sql == "" {
		zap.L().Debug("llm generation fell back",
			zap.String("query_id", q.id),
			zap.String("status", string(status)),
		)
		return skip()
	}

	rows, err := e.store.Query(ctx, sql)
	if err != nil {
		// Validated SQL can still fail to execute; fall back rather than
		// surfacing the LLM's mistake.
		zap.L().Debug("llm sql execution failed",
			zap.String("query_id", q.id),
			zap.Error(err),
		)
		return skip()
	}

	q.method = MethodLLM
	return q.answered(format.Format(format.Classify(q.question), rows))
}

// heuristicSQL is the terminal rule: general single-account synthesis.
func (e *Engine) heuristicSQL(ctx context.Context, q *query) (Answer, bool, error) {
	bundle, status, err := e.synth.Build(ctx, q.it)
	if err != nil {
		return Answer{}, false, err
	}
	if status == sqlgen.StatusNoAccount {
		return q.refused()
	}

	rows, err := e.store.Query(ctx, bundle.SQL, bundle.Args...)
	if err != nil {
		return Answer{}, false, err
	}
	return q.answered(format.Format(format.Classify(q.question), rows))
}
