package main

import (
	"fmt"
	"log/slog"

	"github.com/amirasaad/mileage/infra/initializer"
	infra_repository "github.com/amirasaad/mileage/infra/repository"
	"github.com/amirasaad/mileage/pkg/app"
	"github.com/amirasaad/mileage/pkg/config"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type rootOptions struct {
	envFile string
	output  string
}

// newRootCmd returns the root command of the mileage CLI.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "mileage",
		Short:         "Mileage ledger operator tool",
		Long:          "Operate the mileage points ledger: migrate the schema, record transactions, inspect and verify balances.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "environment file to load before reading configuration")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputAuto, "output format: auto|json|text")

	rootCmd.AddCommand(newMigrateCmd(opts))
	rootCmd.AddCommand(newEarnCmd(opts))
	rootCmd.AddCommand(newUseCmd(opts))
	rootCmd.AddCommand(newExpireCmd(opts))
	rootCmd.AddCommand(newAdjustCmd(opts))
	rootCmd.AddCommand(newBalanceCmd(opts))
	rootCmd.AddCommand(newVerifyCmd(opts))
	rootCmd.AddCommand(newTokenCmd(opts))

	return rootCmd
}

func (o *rootOptions) config() (*config.App, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// openDB connects to the configured database. Logs go to the command's stderr
// so stdout stays machine readable.
func (o *rootOptions) openDB(cmd *cobra.Command) (*config.App, *slog.Logger, *gorm.DB, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := initializer.NewLogger(cmd.ErrOrStderr(), cfg.Log)
	db, err := initializer.OpenDatabase(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, db, nil
}

// openApp builds the same composition root the HTTP server uses. The returned
// func drains the event bus and closes the database.
func (o *rootOptions) openApp(cmd *cobra.Command) (*app.App, func(), error) {
	cfg, logger, db, err := o.openDB(cmd)
	if err != nil {
		return nil, nil, err
	}
	bus, err := initializer.NewEventBus(cfg, logger)
	if err != nil {
		closeDB(db)
		return nil, nil, err
	}

	a := app.New(&config.Deps{
		Uow:      infra_repository.NewUoW(db),
		EventBus: bus,
		Logger:   logger,
		Config:   cfg,
	}, cfg)
	return a, func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close event bus", "error", err)
		}
		closeDB(db)
	}, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
