package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/finqa-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "finqa-cli",
	Short: "Natural-language Q&A over the financial and cargo dataset",
	Long:  "Translates questions about income-statement metrics, cash flow, ROCE, and port cargo volumes into SQL, executes them against the analytical store, and answers in prose.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
