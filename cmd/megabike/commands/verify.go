package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	mw "github.com/padraicbc/megabike/middleware"
)

func init() {
	rootCmd.AddCommand(verifySecretCmd)
}

var verifySecretCmd = &cobra.Command{
	Use:   "verify-secret [token]",
	Short: "Checks that a token (default ANON_KEY) is signed with JWT_SECRET.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.cfg.RequireJWTSecret(); err != nil {
			return err
		}
		token := a.cfg.AnonKey
		if len(args) == 1 {
			token = args[0]
		}
		if token == "" {
			return errors.New("no token given and ANON_KEY is unset")
		}
		if err := mw.VerifySignature(token, a.cfg.JWTKey()); err != nil {
			return fmt.Errorf("signature mismatch: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "signature ok")
		return nil
	},
}
