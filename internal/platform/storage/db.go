package storage

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"boss-server-go/internal/platform/errors"
)

// Open connects to the sqlite database at dsn, creating parent directories
// for file-backed databases, and applies pending migrations. adminPassword
// seeds the administrator account on a first run; it is ignored once the
// initial migration has been applied.
func Open(dsn, adminPassword string) (*gorm.DB, error) {
	if dir := filepath.Dir(dsn); dir != "." && dir != "" && dsn != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(errors.KindStorage, "open", "create database directory", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "open", "open database", err)
	}

	manager := NewMigrationManager(db)
	manager.AddMigration(&initialMigration{adminPassword: adminPassword})
	if err := manager.RunMigrations(); err != nil {
		return nil, err
	}

	return db, nil
}
