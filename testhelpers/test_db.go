package testhelpers

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"bluewar-ledger/database"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var openSQLite = func(dsn string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
}

// OpenEmptyDB returns an isolated in-memory SQLite database with no tables.
func OpenEmptyDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	db, err := openSQLite(dsn)
	if err != nil {
		panic(fmt.Sprintf("failed to open test database: %v", err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(fmt.Sprintf("failed to get sql.DB: %v", err))
	}
	// One connection keeps the shared in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SetupTestDB returns an in-memory SQLite database with the full schema applied.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := OpenEmptyDB(t)
	if _, err := database.Prepare(context.Background(), db, zap.NewNop()); err != nil {
		panic(fmt.Sprintf("failed to prepare test database: %v", err))
	}
	return db
}
