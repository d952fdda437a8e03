package infra

import (
	"context"
	"fmt"
	"testing"

	infra_repository "github.com/amirasaad/mileage/infra/repository"
	"github.com/amirasaad/mileage/pkg/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryDSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
}

func TestNewDBConnection_Errors(t *testing.T) {
	_, err := NewDBConnection(&config.DB{Driver: "postgres"}, "test")
	assert.ErrorContains(t, err, "DATABASE_URL")

	_, err = NewDBConnection(&config.DB{Driver: "mysql", Url: "root@/mileage"}, "test")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestNewDBConnection_SQLite(t *testing.T) {
	db, err := NewDBConnection(&config.DB{Driver: "sqlite", Url: memoryDSN(), MaxOpenConns: 10}, "test")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	assert.Equal(t, "sqlite", db.Dialector.Name())
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestMigrateUpDown_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := NewDBConnection(&config.DB{Driver: "sqlite", Url: memoryDSN()}, "test")
	require.NoError(t, err)

	require.NoError(t, MigrateUp(ctx, db))
	assert.True(t, db.Migrator().HasTable(&infra_repository.Account{}))
	assert.True(t, db.Migrator().HasTable(&infra_repository.Transaction{}))
	assert.True(t, db.Migrator().HasIndex(&infra_repository.Transaction{}, "idx_transactions_account_sequence"))

	// idempotent
	require.NoError(t, MigrateUp(ctx, db))

	require.NoError(t, MigrateDown(ctx, db))
	assert.False(t, db.Migrator().HasTable(&infra_repository.Transaction{}))
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_create_mileage.up.sql")
	assert.Contains(t, names, "000001_create_mileage.down.sql")
}
