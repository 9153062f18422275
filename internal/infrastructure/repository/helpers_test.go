package repository

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/repolens/gatekeeper/internal/infrastructure/persistence/models"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

// setupTestDB opens a private in-memory sqlite database with the full schema.
// A single connection keeps every goroutine on the same database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// concurrentConns is the pool size for setupConcurrentTestDB.
const concurrentConns = 8

// setupConcurrentTestDB opens a file-backed sqlite database with a pool of
// real connections, so goroutines hit the database over separate
// connections instead of queueing on one. Write transactions take the
// write lock up front (_txlock=immediate) and wait for it (_busy_timeout).
func setupConcurrentTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gatekeeper.db")
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(concurrentConns)
	sqlDB.SetMaxIdleConns(concurrentConns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func testLogger() logger.Interface {
	return logger.NewNop()
}
