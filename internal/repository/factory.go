package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/thread-dump-analysis/pkg/config"
	"github.com/thread-dump-analysis/pkg/telemetry"
)

// StoreType represents the report store backend.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeSQLite StoreType = "sqlite"
)

// NewSQLiteDB opens a GORM connection to an SQLite database.
func NewSQLiteDB(dsn string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable OpenTelemetry tracing if OTEL_ENABLED=true
	if telemetry.Enabled() {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, fmt.Errorf("failed to enable telemetry: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// A private in-memory database exists per connection.
	if strings.Contains(dsn, ":memory:") && !strings.Contains(dsn, "cache=shared") {
		sqlDB.SetMaxOpenConns(1)
	}
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// NewReportStore creates the store selected by cfg.
func NewReportStore(cfg *config.StoreConfig) (ReportStore, error) {
	switch StoreType(cfg.Type) {
	case StoreTypeMemory, "":
		return NewMemoryReportStore(cfg.MaxReports), nil
	case StoreTypeSQLite:
		db, err := NewSQLiteDB(cfg.DSN)
		if err != nil {
			return nil, err
		}
		store, err := NewGormReportStore(db, cfg.MaxReports)
		if err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				sqlDB.Close()
			}
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
