package commands

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(recomputeCmd)
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Rebuilds rider and team points for the season from stored results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		rules, err := a.rules()
		if err != nil {
			return err
		}
		bdb, store, err := a.openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer bdb.Close()

		sum, err := a.aggregator(store, rules).Recompute(cmd.Context(), a.cfg.SeasonYear)
		if err != nil {
			return err
		}
		renderRecompute(sum)
		return nil
	},
}
