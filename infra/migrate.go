package infra

import (
	"context"
	"embed"
	"errors"
	"fmt"

	infra_repository "github.com/amirasaad/mileage/infra/repository"
	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateUp brings the schema to the latest version. Postgres runs the embedded
// SQL migrations; sqlite, used for local runs and tests, is auto-migrated from the models.
func MigrateUp(ctx context.Context, db *gorm.DB) error {
	if db.Dialector.Name() == "sqlite" {
		return db.WithContext(ctx).AutoMigrate(infra_repository.Models()...)
	}
	return withMigrator(ctx, db, func(m *migrate.Migrate) error {
		return m.Up()
	})
}

// MigrateDown reverts every migration.
func MigrateDown(ctx context.Context, db *gorm.DB) error {
	if db.Dialector.Name() == "sqlite" {
		return db.WithContext(ctx).Migrator().DropTable(infra_repository.Models()...)
	}
	return withMigrator(ctx, db, func(m *migrate.Migrate) error {
		return m.Down()
	})
}

func withMigrator(ctx context.Context, db *gorm.DB, fn func(*migrate.Migrate) error) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	// a dedicated connection, so closing the migrator leaves the pool open
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	driver, err := migratepostgres.WithConnection(ctx, conn, &migratepostgres.Config{})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("migration driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = driver.Close()
		return err
	}
	defer m.Close() //nolint:errcheck

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
