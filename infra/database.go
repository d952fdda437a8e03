package infra

import (
	"errors"
	"fmt"
	"time"

	"github.com/amirasaad/mileage/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDBConnection opens the configured database. Gorm logs SQL only in development.
func NewDBConnection(
	cnf *config.DB,
	appEnv string,
) (*gorm.DB, error) {
	databaseUrl := cnf.Url
	if databaseUrl == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	var logMode logger.LogLevel
	if appEnv == "development" {
		logMode = logger.Info
	} else {
		logMode = logger.Silent
	}

	var dialector gorm.Dialector
	switch cnf.Driver {
	case "", "postgres":
		dialector = postgres.Open(databaseUrl)
	case "sqlite":
		dialector = sqlite.Open(databaseUrl)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cnf.Driver)
	}

	connection, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(logMode),
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := connection.DB()
	if err != nil {
		return nil, err
	}
	maxOpen := cnf.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	// sqlite allows a single writer; one connection also keeps :memory: databases shared
	if cnf.Driver == "sqlite" {
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	return connection, nil
}
