package commands

import (
	"github.com/spf13/cobra"

	"github.com/padraicbc/megabike/db"
)

func init() {
	rootCmd.AddCommand(initDBCmd)
}

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Creates missing tables and indexes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		bdb, _, err := a.openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer bdb.Close()

		if err := db.CreateTables(cmd.Context(), bdb); err != nil {
			return err
		}
		a.log.Info("tables ready")
		return nil
	},
}
