package datastore

import (
	"fmt"

	"github.com/tphakala/birdobs/internal/conf"
	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/logger"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// MySQLStore implements Interface for MySQL
type MySQLStore struct {
	DataStore
}

func validateMySQLConfig(s *conf.MySQLSettings) error {
	if s.Host == "" || s.Database == "" || s.Username == "" {
		return errors.NewStd("mysql host, database and username are required")
	}
	return nil
}

// mysqlDSN builds the driver DSN. Port is kept as configured text.
func mysqlDSN(s *conf.MySQLSettings) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		s.Username, s.Password, s.Host, s.Port, s.Database)
}

// Open sets up the MySQL database connection
func (store *MySQLStore) Open() error {
	cfg := &store.Settings.Datastore.MySQL
	if err := validateMySQLConfig(cfg); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}

	db, err := gorm.Open(mysql.Open(mysqlDSN(cfg)), gormConfig(store.Settings))
	if err != nil {
		getLogger().Error("failed to open MySQL database",
			logger.String("host", cfg.Host),
			logger.String("port", cfg.Port),
			logger.String("database", cfg.Database),
			logger.Error(err))
		return errors.New(fmt.Errorf("failed to open MySQL database: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Priority(errors.PriorityCritical).
			Context("host", cfg.Host).
			Context("database", cfg.Database).
			Build()
	}

	store.DB = db
	getLogger().Info("opened database",
		logger.String("type", "mysql"),
		logger.String("host", cfg.Host),
		logger.String("database", cfg.Database))
	return nil
}

// Close MySQL database connections
func (store *MySQLStore) Close() error {
	return store.closeDB()
}
