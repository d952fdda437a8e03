package main

import (
	"context"
	"fmt"

	"github.com/amirasaad/mileage/infra"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(migrateStep(opts, "up", "Apply all pending migrations", infra.MigrateUp))
	cmd.AddCommand(migrateStep(opts, "down", "Revert every migration", infra.MigrateDown))
	return cmd
}

func migrateStep(opts *rootOptions, use, short string, fn func(context.Context, *gorm.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, db, err := opts.openDB(cmd)
			if err != nil {
				return err
			}
			defer closeDB(db)

			if err := fn(cmd.Context(), db); err != nil {
				return fmt.Errorf("migrate %s: %w", use, err)
			}
			logger.Info("Migration complete", "direction", use, "driver", db.Dialector.Name())
			return nil
		},
	}
}
