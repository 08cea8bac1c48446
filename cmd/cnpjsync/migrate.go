package main

import (
	"github.com/spf13/cobra"
	"github.com/suteetoe/cnpjsync/internal/model"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update every table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := model.Migrate(a.db.WithContext(cmd.Context())); err != nil {
			return err
		}
		a.log.Info("Migrations applied")
		return nil
	},
}
