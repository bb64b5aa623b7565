package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/padraicbc/megabike/ingest"
)

var (
	refreshSlug  string
	refreshDate  string
	refreshCSV   string
	refreshLimit int
)

func init() {
	refreshCmd.Flags().StringVar(&refreshSlug, "ranking-slug", ingest.OneDayRankingSlug, "ranking to seed riders from")
	refreshCmd.Flags().StringVar(&refreshDate, "date", "", "ranking date YYYY-MM-DD (default today)")
	refreshCmd.Flags().StringVar(&refreshCSV, "seed-csv", "", "seed riders and prices from a CSV instead")
	refreshCmd.Flags().IntVar(&refreshLimit, "limit", ingest.DefaultRefreshLimit, "maximum riders to seed")
	rootCmd.AddCommand(refreshCmd)
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Seeds the season's riders and prices from a ranking or CSV.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		bdb, store, err := a.openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer bdb.Close()

		var sum *ingest.RefreshSummary
		if refreshCSV != "" {
			rows, err := ingest.ReadSeedCSVFile(refreshCSV)
			if err != nil {
				return err
			}
			if len(rows) > refreshLimit {
				rows = rows[:refreshLimit]
			}
			sum, err = ingest.NewRefresher(nil, store, a.log).Seed(cmd.Context(), a.cfg.SeasonYear, refreshCSV, rows)
			if err != nil {
				return err
			}
		} else {
			client, err := a.pcsClient()
			if err != nil {
				return err
			}
			date := refreshDate
			if date == "" {
				date = time.Now().UTC().Format(time.DateOnly)
			}
			sum, err = ingest.NewRefresher(client, store, a.log).FromRanking(cmd.Context(), ingest.RefreshOptions{
				Season:      a.cfg.SeasonYear,
				RankingSlug: refreshSlug,
				Date:        date,
				Limit:       refreshLimit,
			})
			if err != nil {
				return fmt.Errorf("%w (try another --ranking-slug or --seed-csv)", err)
			}
		}

		t := newTable()
		t.SetTitle(fmt.Sprintf("Season %d refresh", sum.Season))
		t.AppendHeader(table.Row{"Source", "Rows", "Riders", "Prices"})
		t.AppendRow(table.Row{sum.Source, sum.Rows, sum.Riders, sum.Prices})
		t.Render()
		return nil
	},
}
