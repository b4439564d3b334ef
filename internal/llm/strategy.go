// Package llm generates SQL for analytical questions through an external
// completion provider, gated by safety validation before execution.
package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/finqa-cli/internal/config"
	"github.com/sells-group/finqa-cli/internal/store"
	"github.com/sells-group/finqa-cli/pkg/anthropic"
	"github.com/sells-group/finqa-cli/pkg/openai"
)

// GenStatus classifies a generation attempt. Callers treat every non-OK
// value identically as "could not get a safe query".
type GenStatus string

const (
	StatusOK           GenStatus = "OK"
	StatusUnavailable  GenStatus = "UNAVAILABLE"
	StatusEmpty        GenStatus = "EMPTY"
	StatusError        GenStatus = "ERROR"
	StatusUnsafe       GenStatus = "UNSAFE"
	StatusBadTable     GenStatus = "BAD_TABLE"
	StatusUnknownTable GenStatus = "UNKNOWN_TABLE"
)

// httpStatus maps a non-200 provider response to its own status code.
func httpStatus(code int) GenStatus {
	return GenStatus(fmt.Sprintf("HTTP_%d", code))
}

// SchemaSource provides live schema introspection; satisfied by the store.
type SchemaSource interface {
	SchemaTables(ctx context.Context) ([]store.TableSchema, error)
}

// Strategy holds the provider configuration and clients. Availability is
// a pure function of configuration; no network call happens before
// GenerateSQL.
type Strategy struct {
	cfg       config.LLMConfig
	schema    SchemaSource
	openai    openai.Client
	anthropic anthropic.Client
}

// New constructs a Strategy from explicit configuration.
func New(cfg config.LLMConfig, schema SchemaSource) *Strategy {
	s := &Strategy{cfg: cfg, schema: schema}
	if cfg.Key == "" {
		return s
	}
	switch cfg.Provider {
	case "openai":
		s.openai = openai.NewClient(cfg.Key,
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithModel(cfg.Model),
		)
	case "anthropic":
		s.anthropic = anthropic.NewClient(cfg.Key)
	}
	return s
}

// Available reports whether a provider and credential are both configured.
func (s *Strategy) Available() bool {
	return (s.cfg.Provider == "openai" || s.cfg.Provider == "anthropic") && s.cfg.Key != ""
}

// Probe is the diagnostic capability report.
type Probe struct {
	Available     bool   `json:"available"`
	Provider      string `json:"provider"`
	HasCredential bool   `json:"has_credential"`
	BaseEndpoint  string `json:"base_endpoint"`
}

// Probe reports configuration status without side effects.
func (s *Strategy) Probe() Probe {
	return Probe{
		Available:     s.Available(),
		Provider:      s.cfg.Provider,
		HasCredential: s.cfg.Key != "",
		BaseEndpoint:  s.cfg.BaseURL,
	}
}

// GenerateSQL asks the provider for a single read-only statement and runs
// it through the safety gate. On any non-OK status the returned SQL is
// empty and the caller falls back to the heuristic path.
func (s *Strategy) GenerateSQL(ctx context.Context, question string) (string, GenStatus) {
	if !s.Available() {
		return "", StatusUnavailable
	}

	tables, err := s.schema.SchemaTables(ctx)
	if err != nil {
		zap.L().Warn("llm: schema introspection failed", zap.Error(err))
		return "", StatusError
	}
	prompt := buildPrompt(question, tables)

	raw, status := s.complete(ctx, prompt)
	if status != StatusOK {
		return "", status
	}
	if raw == "" {
		return "", StatusEmpty
	}

	sql := sanitize(raw)
	zap.L().Debug("llm: candidate sql", zap.String("sql", sql))

	known := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		known[t.Name] = struct{}{}
	}
	if status := validate(sql, known); status != StatusOK {
		zap.L().Debug("llm: rejected sql", zap.String("status", string(status)))
		return "", status
	}
	return sql, StatusOK
}

func (s *Strategy) complete(ctx context.Context, prompt string) (string, GenStatus) {
	zero := 0.0
	switch s.cfg.Provider {
	case "openai":
		resp, err := s.openai.ChatCompletion(ctx, openai.ChatCompletionRequest{
			Messages: []openai.Message{
				{Role: "system", Content: "Generate safe SQL."},
				{Role: "user", Content: prompt},
			},
			Temperature: &zero,
		})
		if err != nil {
			var se *openai.StatusError
			if errors.As(err, &se) {
				return "", httpStatus(se.Code)
			}
			return "", StatusError
		}
		if len(resp.Choices) == 0 {
			return "", StatusEmpty
		}
		return resp.Choices[0].Message.Content, StatusOK

	case "anthropic":
		model := s.cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		resp, err := s.anthropic.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       model,
			MaxTokens:   1024,
			System:      "Generate safe SQL.",
			Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
			Temperature: &zero,
		})
		if err != nil {
			return "", StatusError
		}
		return resp.Text(), StatusOK
	}
	return "", StatusUnavailable
}
