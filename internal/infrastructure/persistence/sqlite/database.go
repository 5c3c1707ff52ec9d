// Package sqlite opens the single-file database used in development and tests
package sqlite

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	gormrepo "github.com/JosephChataignon/hAIckers-team/internal/infrastructure/persistence/gorm"
)

const busyTimeout = 5 * time.Second

// SetupDatabase opens the SQLite database at path and creates the schema.
// An empty path opens a private in-memory database.
func SetupDatabase(path string, log gormlogger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger:         log,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	// SQLite serializes writers; one connection also keeps :memory: shared
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(gormrepo.AllModels()...); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

func dsn(path string) string {
	if path == "" || path == ":memory:" {
		return ":memory:"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on", path, sep, busyTimeout.Milliseconds())
}
