// Package gorm is the relational storage driver. It runs on postgres in
// production and on sqlite for local work and tests.
package gorm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hostdesk/internal/infra/config"
)

var ErrUnknownDriver = errors.New("gorm: unknown relational driver")

// Open connects to the database named by driver. sqlite gets a single
// connection, which makes every transaction exclusive.
func Open(driver, dsn string, log *slog.Logger) (*gorm.DB, error) {
	if log == nil {
		log = slog.Default()
	}
	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case config.DriverPostgres:
		log.Info("connecting to postgres")
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	case config.DriverSQLite:
		log.Info("using sqlite", "dsn", dsn)
		db, err = gorm.Open(gormsqlite.Open(dsn), cfg)
		if err == nil {
			err = singleConnection(db)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}

func singleConnection(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	return nil
}

// Migrate creates or updates every table the driver uses.
func Migrate(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx)
	if err := tx.AutoMigrate(&propertyModel{}, &bookingModel{}, &outboxModel{}, &idempotencyModel{}, &inboxModel{}); err != nil {
		return fmt.Errorf("gorm: migrate: %w", err)
	}
	for _, table := range []string{cleaningTable, maintenanceTable} {
		if err := tx.Table(table).AutoMigrate(&taskModel{}); err != nil {
			return fmt.Errorf("gorm: migrate %s: %w", table, err)
		}
	}
	return nil
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
