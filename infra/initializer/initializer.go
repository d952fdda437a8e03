// Package initializer builds the infrastructure dependencies from configuration.
package initializer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/mileage/infra"
	infra_eventbus "github.com/amirasaad/mileage/infra/eventbus"
	infra_repository "github.com/amirasaad/mileage/infra/repository"
	"github.com/amirasaad/mileage/pkg/config"
	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/amirasaad/mileage/pkg/eventbus"
	"gorm.io/gorm"
)

// EventTypes lists every event the bus can decode from a stream.
func EventTypes() map[string]func() eventbus.Event {
	return map[string]func() eventbus.Event{
		mileage.EventTypeTransactionRecorded: func() eventbus.Event { return &mileage.TransactionRecorded{} },
	}
}

// InitializeDependencies initializes all the application dependencies
func InitializeDependencies(cfg *config.App) (
	deps *config.Deps,
	err error,
) {
	logger := SetupLogger(cfg.Log)
	return initialize(context.Background(), cfg, logger)
}

func initialize(ctx context.Context, cfg *config.App, logger *slog.Logger) (*config.Deps, error) {
	db, err := OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	bus, err := NewEventBus(cfg, logger)
	if err != nil {
		closeDB(db, logger)
		return nil, err
	}

	return &config.Deps{
		Uow:      infra_repository.NewUoW(db),
		EventBus: bus,
		Logger:   logger,
		Config:   cfg,
	}, nil
}

// OpenDatabase connects to the configured database and applies the
// migrations when DATABASE_AUTO_MIGRATE is set.
func OpenDatabase(ctx context.Context, cfg *config.App, logger *slog.Logger) (*gorm.DB, error) {
	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := infra.MigrateUp(ctx, db); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			closeDB(db, logger)
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		logger.Info("Database migrated", "driver", db.Dialector.Name())
	}
	return db, nil
}

// closeDB releases the pool of a database that will not be handed out.
func closeDB(db *gorm.DB, logger *slog.Logger) {
	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.Close()
	}
	if err != nil {
		logger.Warn("Failed to close database", "error", err)
	}
}

// NewEventBus selects Redis Streams when REDIS_URL is set and the in-process
// async bus otherwise.
func NewEventBus(cfg *config.App, logger *slog.Logger) (eventbus.Bus, error) {
	if cfg.Redis == nil || cfg.Redis.URL == "" {
		logger.Info("Using in-memory event bus")
		return infra_eventbus.NewWithMemoryAsync(logger), nil
	}
	bus, err := infra_eventbus.NewWithRedis(cfg.Redis, EventTypes(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis event bus: %w", err)
	}
	logger.Info("Using Redis event bus", "stream", cfg.Redis.Stream)
	return bus, nil
}
