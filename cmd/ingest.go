package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/finqa-cli/internal/ingest"
	"github.com/sells-group/finqa-cli/internal/synonym"
)

var ingestDataDir string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build the SQLite database from the dataset files",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dataDir := ingestDataDir
		if dataDir == "" {
			dataDir = cfg.Ingest.DataDir
		}

		resolver, err := synonym.Load(cfg.Ingest.Dictionary)
		if err != nil {
			return eris.Wrap(err, "load dictionary")
		}

		if err := ingest.Build(ctx, cfg.Store.Path, dataDir, resolver); err != nil {
			return err
		}
		fmt.Printf("Database built at %s\n", cfg.Store.Path)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDataDir, "data-dir", "", "directory holding the dataset files (defaults to config)")
	rootCmd.AddCommand(ingestCmd)
}
