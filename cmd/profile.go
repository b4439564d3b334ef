package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/finqa-cli/internal/quality"
	"github.com/sells-group/finqa-cli/internal/store"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Run data quality checks against the ingested database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		report, err := quality.New(st).Run(ctx)
		if err != nil {
			return err
		}
		report.Write(os.Stdout)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
}
