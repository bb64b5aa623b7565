package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/padraicbc/megabike/config"
	"github.com/padraicbc/megabike/pcs"
	"github.com/padraicbc/megabike/roster"
)

var importOpts struct {
	minRiders    int
	maxRiders    int
	skipExisting bool
	overwrite    bool
	seedMissing  bool
	dryRun       bool
	date         string
}

func init() {
	f := importTeamsCmd.Flags()
	f.IntVar(&importOpts.minRiders, "min-riders", 0, "smallest roster imported (default MIN_RIDERS)")
	f.IntVar(&importOpts.maxRiders, "max-riders", 0, "largest roster imported (default MAX_RIDERS)")
	f.BoolVar(&importOpts.skipExisting, "skip-existing", true, "leave teams that already exist untouched")
	f.BoolVar(&importOpts.overwrite, "overwrite", false, "replace teams that already exist")
	f.BoolVar(&importOpts.seedMissing, "seed-missing", false, "look up unknown riders on ProCyclingStats")
	f.BoolVar(&importOpts.dryRun, "dry-run", false, "validate and value rosters without writing")
	f.StringVar(&importOpts.date, "date", "", "ranking date for rider lookups YYYY-MM-DD (default today)")
	rootCmd.AddCommand(importTeamsCmd)
}

var importTeamsCmd = &cobra.Command{
	Use:   "import-teams <roster.csv>",
	Short: "Imports team rosters from a CSV export.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		entries, err := roster.ReadCSVFile(args[0])
		if err != nil {
			return err
		}

		opts, err := importOptions(a.cfg)
		if err != nil {
			return err
		}

		var resolver roster.Resolver
		if opts.SeedMissing {
			client, err := a.pcsClient()
			if err != nil {
				return err
			}
			date := importOpts.date
			if date == "" {
				date = time.Now().UTC().Format(time.DateOnly)
			}
			resolver = pcs.NewResolver(client, date)
		}

		bdb, store, err := a.openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer bdb.Close()

		sum, err := roster.NewImporter(store, resolver, opts, a.log).Import(cmd.Context(), entries)
		if err != nil {
			var dup *roster.DuplicateSlotError
			var missing *roster.MissingRidersError
			if errors.As(err, &dup) || errors.As(err, &missing) {
				return &exitError{code: 2, err: err}
			}
			return err
		}
		renderImport(sum)
		return nil
	},
}

// importOptions merges the import flags over the configured roster bounds.
func importOptions(cfg *config.Config) (roster.Options, error) {
	opts := roster.Options{
		Season:       cfg.SeasonYear,
		MinRiders:    cfg.MinRiders,
		MaxRiders:    cfg.MaxRiders,
		SkipExisting: importOpts.skipExisting,
		Overwrite:    importOpts.overwrite,
		SeedMissing:  importOpts.seedMissing,
		DryRun:       importOpts.dryRun,
	}
	if importOpts.minRiders > 0 {
		opts.MinRiders = importOpts.minRiders
	}
	if importOpts.maxRiders > 0 {
		opts.MaxRiders = importOpts.maxRiders
	}
	if opts.MaxRiders < opts.MinRiders {
		return opts, &exitError{code: 2, err: fmt.Errorf("roster bounds [%d,%d] invalid", opts.MinRiders, opts.MaxRiders)}
	}
	return opts, nil
}

func renderImport(sum *roster.Summary) {
	t := newTable()
	title := "Team import"
	if sum.DryRun {
		title += " (dry run)"
	}
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Team", "Owner", "Riders", "Cost", "Points", "Status", "Warnings"})
	for _, r := range sum.Teams {
		t.AppendRow(table.Row{r.Team.TeamName, r.Team.Owner, r.Riders, r.Totals.Cost, r.Totals.Points, r.Status, strings.Join(r.Warnings, ", ")})
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d teams", sum.Processed), "", "", "", "",
		fmt.Sprintf("%d created, %d updated, %d skipped", sum.Created, sum.Updated, sum.SkippedSize+sum.SkippedExisting),
		fmt.Sprintf("%d warned", sum.Warned),
	})
	t.Render()
	if sum.RidersSeeded > 0 || sum.PricesWritten > 0 {
		fmt.Printf("riders seeded: %d, prices written: %d\n", sum.RidersSeeded, sum.PricesWritten)
	}
}
