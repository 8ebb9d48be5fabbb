// database/database.go
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bluewar-ledger/config"
	"bluewar-ledger/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to postgres when DATABASE_URL is set, otherwise to the SQLite file.
func Open(cfg config.Config, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if cfg.UsesPostgres() {
		dialector = postgres.Open(cfg.DatabaseURL)
	} else {
		dialector = sqlite.Open(sqliteDSN(cfg.SQLitePath))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.UsesPostgres() {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		// SQLite allows one writer; serialize through a single connection.
		sqlDB.SetMaxOpenConns(1)
	}

	logger.Info("database connected",
		zap.String("driver", db.Dialector.Name()),
	)
	return db, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000&_foreign_keys=on"
}

// CreateMissingTables creates tables that do not exist yet and leaves existing
// tables untouched. Column repair on existing tables is EnsureSchema's job.
func CreateMissingTables(ctx context.Context, db *gorm.DB, tables ...any) ([]string, error) {
	m := db.WithContext(ctx).Migrator()
	var created []string
	for _, model := range tables {
		if m.HasTable(model) {
			continue
		}
		if err := m.CreateTable(model); err != nil {
			return created, fmt.Errorf("create table for %T: %w", model, err)
		}
		created = append(created, fmt.Sprintf("%T", model))
	}
	return created, nil
}

// Prepare runs declarative table creation followed by the schema guard.
// Callers treat any error as fatal.
func Prepare(ctx context.Context, db *gorm.DB, logger *zap.Logger) (int, error) {
	created, err := CreateMissingTables(ctx, db, models.All()...)
	if err != nil {
		return 0, err
	}
	if len(created) > 0 {
		logger.Info("created missing tables", zap.Strings("models", created))
	}

	altered, err := EnsureSchema(ctx, db, AdditiveMigrations)
	if err != nil {
		return altered, err
	}
	if altered > 0 {
		logger.Warn("schema guard repaired columns", zap.Int("alterations", altered))
	} else {
		logger.Info("schema guard: schema up to date")
	}
	return altered, nil
}
