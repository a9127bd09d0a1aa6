package main

import (
	"github.com/fekuna/artista-service/migrations"
	"github.com/fekuna/artista-service/pkg/database/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := connect(false)
		if err != nil {
			return err
		}
		defer d.Close()
		return postgres.Migrate(cmd.Context(), d.db, migrations.FS, d.logger)
	},
}
