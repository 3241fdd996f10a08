// Package database contains the record store: the gorm models and the connection setup.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/quizgenius/backend/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrUnsupportedDriver is returned when the configured driver is unknown.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Open opens the database described by cfg.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	switch cfg.Driver {
	case config.DatabaseDriverSQLite:
		db, err := gorm.Open(sqlite.Open(cfg.DSN), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sqlite pool: %w", err)
		}
		// sqlite allows a single writer; serialize through one connection.
		sqlDB.SetMaxOpenConns(1)

		return db, nil
	case config.DatabaseDriverPostgres:
		connConfig, err := pgx.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("parse postgres dsn: %w", err)
		}
		connConfig.Tracer = otelpgx.NewTracer()

		db, err := gorm.Open(postgres.New(postgres.Config{
			Conn: stdlib.OpenDB(*connConfig),
		}), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}

		return db, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

// Migrate migrates the database to the latest version.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(AllModels()...)
}

// Close closes the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// IsNotFound reports whether err means that no record was found.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports whether err is a unique constraint violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
