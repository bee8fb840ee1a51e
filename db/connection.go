// Package db implements the result store: a single-file, embedded
// relational database holding scans and their findings.
package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DatabaseConnection owns the single sqlite file backing a recon store.
// Callers hold it by reference; it is constructed once per process and
// passed explicitly to the engine, manager, and every module instance that
// needs it — there is no package-level ambient connection.
type DatabaseConnection struct {
	db    *gorm.DB
	sqlDB *sql.DB
}

// NewConnection opens (creating if absent) the sqlite database at path and
// migrates the scans/findings schema.
func NewConnection(path string) (*DatabaseConnection, error) {
	if path == "" {
		path = "recon.db"
	}

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}

	// The findings table may pre-exist from a build that predates the
	// scan_id column; add it and ignore a "duplicate column" error the same
	// way the schema migration tolerates an already-applied ALTER TABLE.
	if err := gdb.Exec(`ALTER TABLE findings ADD COLUMN scan_id text`).Error; err != nil {
		if !strings.Contains(strings.ToLower(err.Error()), "duplicate column") &&
			!strings.Contains(strings.ToLower(err.Error()), "no such table") {
			log.Printf("recon: scan_id migration check: %v", err)
		}
	}

	if err := gdb.AutoMigrate(&Scan{}, &Finding{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// sqlite tolerates only one writer at a time; keep the pool small so
	// GORM serializes writes through the driver rather than fan out
	// connections that would just contend on the file lock.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &DatabaseConnection{db: gdb, sqlDB: sqlDB}, nil
}

// Close releases the underlying sqlite file handle.
func (d *DatabaseConnection) Close() error {
	return d.sqlDB.Close()
}
