package datastore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteStore implements Interface for SQLite
type SQLiteStore struct {
	DataStore
}

func validateSQLiteConfig(path string) error {
	if path == "" {
		return errors.NewStd("sqlite path must not be empty")
	}
	return nil
}

// Open sets up the SQLite database connection
func (store *SQLiteStore) Open() error {
	path := store.Settings.Datastore.SQLite.Path
	if err := validateSQLiteConfig(path); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.New(fmt.Errorf("failed to create database directory: %w", err)).
					Component("datastore").
					Category(errors.CategoryFileIO).
					Priority(errors.PriorityHigh).
					Context("path", dir).
					Build()
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig(store.Settings))
	if err != nil {
		return errors.New(fmt.Errorf("failed to open SQLite database: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Priority(errors.PriorityCritical).
			Context("path", path).
			Build()
	}

	// A single connection keeps :memory: databases coherent and avoids SQLITE_BUSY on writes
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	store.DB = db
	getLogger().Info("opened database", logger.String("type", "sqlite"), logger.String("path", path))
	return nil
}

// Close SQLite database connections
func (store *SQLiteStore) Close() error {
	return store.closeDB()
}
