package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/padraicbc/megabike/ingest"
)

func init() {
	rootCmd.AddCommand(photosCmd)
}

var photosCmd = &cobra.Command{
	Use:   "photos",
	Short: "Finds photos for riders that have none.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		client, err := a.pcsClient()
		if err != nil {
			return err
		}
		bdb, store, err := a.openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer bdb.Close()

		sum, err := ingest.NewPhotoRefresher(client, store, a.log).Refresh(cmd.Context())
		if err != nil {
			return err
		}
		t := newTable()
		t.AppendHeader(table.Row{"Riders", "Updated", "No photo", "Failed"})
		t.AppendRow(table.Row{sum.Riders, sum.Updated, sum.Missing, sum.Failed})
		t.Render()
		return nil
	},
}
