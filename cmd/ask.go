package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/finqa-cli/internal/engine"
	"github.com/sells-group/finqa-cli/internal/intent"
	"github.com/sells-group/finqa-cli/internal/llm"
	"github.com/sells-group/finqa-cli/internal/store"
	"github.com/sells-group/finqa-cli/internal/synonym"
)

var askCmd = &cobra.Command{
	Use:   "ask \"<question>\"",
	Short: "Answer a single question from the command line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, st, err := buildEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		ans, err := eng.Ask(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "ask")
		}
		fmt.Printf("[%s] %s\n", ans.Method, ans.Text)
		return nil
	},
}

// buildEngine wires the store, synonym resolver, analyzer, and LLM
// strategy from configuration.
func buildEngine(ctx context.Context) (*engine.Engine, store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, nil, eris.Wrap(err, "open store")
	}

	resolver, err := synonym.Load(cfg.Ingest.Dictionary)
	if err != nil {
		st.Close()
		return nil, nil, eris.Wrap(err, "load dictionary")
	}

	strategy := llm.New(cfg.LLM, st)
	eng := engine.New(st, intent.NewAnalyzer(resolver), strategy)
	return eng, st, nil
}

func init() {
	rootCmd.AddCommand(askCmd)
}
