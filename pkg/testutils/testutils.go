// Package testutils holds database and HTTP helpers shared by tests.
package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirasaad/mileage/infra"
	"github.com/amirasaad/mileage/pkg/config"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewSQLiteDB opens a private in-memory sqlite database with the schema applied.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := infra.NewDBConnection(&config.DB{Driver: "sqlite", Url: dsn}, "test")
	require.NoError(t, err)
	closeOnCleanup(t, db)
	require.NoError(t, infra.MigrateUp(context.Background(), db))
	return db
}

// NewPostgresDB starts a throwaway Postgres container and runs the migrations
// against it. The test is skipped in -short mode or when Docker is unavailable.
func NewPostgresDB(t testing.TB) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pg, err := startPostgresContainer(ctx)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pg); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := infra.NewDBConnection(&config.DB{Driver: "postgres", Url: dsn, MaxOpenConns: 10}, "test")
	require.NoError(t, err)
	closeOnCleanup(t, db)
	require.NoError(t, infra.MigrateUp(ctx, db))
	return db
}

func startPostgresContainer(ctx context.Context) (pg *tcpostgres.PostgresContainer, err error) {
	// testcontainers panics when no Docker host can be found
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker not available: %v", r)
		}
	}()
	return tcpostgres.Run(
		ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("mileage"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60*time.Second),
		),
	)
}

func closeOnCleanup(t testing.TB, db *gorm.DB) {
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
}

// MakeRequestWithApp sends a request to app. A non-empty body is sent as JSON
// and a non-empty token as a bearer credential.
func MakeRequestWithApp(t testing.TB, app *fiber.App, method, path, body, token string) *http.Response {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// DecodeJSON decodes the response body into T.
func DecodeJSON[T any](t testing.TB, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
