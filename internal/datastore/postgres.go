package datastore

import (
	"fmt"

	"github.com/tphakala/birdobs/internal/conf"
	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresStore implements Interface for PostgreSQL, the store the original
// bird monitoring database lived in.
type PostgresStore struct {
	DataStore
}

func postgresDSN(s *conf.PostgresSettings) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		s.Host, s.Port, s.Username, s.Password, s.Database, s.SSLMode)
}

// Open sets up the PostgreSQL database connection
func (store *PostgresStore) Open() error {
	cfg := &store.Settings.Datastore.Postgres
	if cfg.Host == "" || cfg.Database == "" {
		return errors.Newf("postgres host and database are required").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}

	db, err := gorm.Open(postgres.Open(postgresDSN(cfg)), gormConfig(store.Settings))
	if err != nil {
		return errors.New(fmt.Errorf("failed to open PostgreSQL database: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Priority(errors.PriorityCritical).
			Context("host", cfg.Host).
			Context("database", cfg.Database).
			Build()
	}

	store.DB = db
	getLogger().Info("opened database",
		logger.String("type", "postgres"),
		logger.String("host", cfg.Host),
		logger.String("database", cfg.Database))
	return nil
}

// Close PostgreSQL database connections
func (store *PostgresStore) Close() error {
	return store.closeDB()
}
