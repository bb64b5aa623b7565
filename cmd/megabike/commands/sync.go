package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/padraicbc/megabike/ingest"
)

var syncRace string

func init() {
	syncCmd.Flags().StringVar(&syncRace, "race", "", `sync a single race slug, e.g. "race/tour-de-france/2025"`)
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetches race results for the season and recomputes totals.",
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
		client, err := a.pcsClient()
		if err != nil {
			return err
		}
		bdb, store, err := a.openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer bdb.Close()

		syncer := ingest.NewSyncer(client, store, rules, a.aggregator(store, rules), a.cfg.FetchConcurrency, a.log)
		var sum *ingest.SyncSummary
		if syncRace != "" {
			sum, err = syncer.SyncRace(cmd.Context(), a.cfg.SeasonYear, syncRace)
		} else {
			sum, err = syncer.SyncAll(cmd.Context(), a.cfg.SeasonYear)
		}
		if sum != nil {
			renderSync(sum)
		}
		return err
	},
}

func renderSync(sum *ingest.SyncSummary) {
	t := newTable()
	t.SetTitle(fmt.Sprintf("Season %d sync", sum.Season))
	t.AppendHeader(table.Row{"Race", "Name", "Date", "Tier", "Results", "Outcome"})
	for _, r := range sum.Races {
		outcome := string(r.Outcome)
		if r.Err != nil {
			outcome += ": " + r.Err.Error()
		}
		t.AppendRow(table.Row{r.Slug, r.Name, r.Date, r.Tier, r.Results, outcome})
	}
	t.AppendFooter(table.Row{"", "", "", "", sum.Results, fmt.Sprintf("%d synced, %d skipped, %d failed", sum.Synced, sum.Skipped, sum.Failed)})
	t.Render()
	if sum.Recompute != nil {
		renderRecompute(sum.Recompute)
	}
}
