// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and Postgres, schema migrations and sample data.
package repo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tbourn/test-stack-api/internal/domain"
)

// IsPostgresURL reports whether url selects the Postgres driver.
func IsPostgresURL(url string) bool {
	u := strings.ToLower(strings.TrimSpace(url))
	return strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://")
}

// OpenDatabase opens the database named by url: postgres:// and
// postgresql:// URLs use the Postgres driver, anything else is treated as a
// SQLite path or DSN.
func OpenDatabase(url string) (*gorm.DB, error) {
	if IsPostgresURL(url) {
		return OpenPostgres(url)
	}
	return OpenSQLite(url)
}

// OpenPostgres opens a Postgres connection pool.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
// In-memory databases are pinned to a single connection so every query sees
// the same schema.
func OpenSQLite(path string) (*gorm.DB, error) {
	memory := isMemoryDSN(path)

	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if !memory && !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, err
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if memory {
		sqlDB.SetMaxOpenConns(1)
		db.Exec("PRAGMA foreign_keys=ON;")
		return db, nil
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

func isMemoryDSN(path string) bool {
	return path == ":memory:" || strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory")
}

// AutoMigrate creates or updates every table the API uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Item{},
		&domain.Note{},
		&domain.Heartbeat{},
		&domain.Idempotency{},
	)
}

// Sample data written by Seed.
var (
	SeedItems = []string{
		"TypeScript Configuration",
		"API Route Handler",
		"Database Schema",
		"Middleware Pipeline",
	}
	SeedNotes = []string{
		"Remember to validate all inputs against the shared contracts",
		"Always use structured logging with request IDs for traceability",
		"Keep service layer pure: no direct HTTP request/response handling",
	}
	SeedHeartbeat = "Initial heartbeat from seed"
)

// Seed replaces all items, notes and heartbeats with the sample data set.
// Rows are written with increasing timestamps in declaration order.
func Seed(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&domain.Item{}, &domain.Note{}, &domain.Heartbeat{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		for i, name := range SeedItems {
			it := &domain.Item{ID: uuid.NewString(), Name: name, CreatedAt: now.Add(time.Duration(i) * time.Millisecond)}
			if err := tx.Create(it).Error; err != nil {
				return err
			}
		}
		for i, content := range SeedNotes {
			n := &domain.Note{ID: uuid.NewString(), Content: content, CreatedAt: now.Add(time.Duration(i) * time.Millisecond)}
			if err := tx.Create(n).Error; err != nil {
				return err
			}
		}
		return tx.Create(&domain.Heartbeat{ID: uuid.NewString(), Message: SeedHeartbeat, CreatedAt: now}).Error
	})
}
