// Package conf loads birdobs settings from config.yaml, environment variables and flags.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/logger"
	"github.com/tphakala/birdobs/internal/secrets"
)

//go:embed config.yaml
var configFiles embed.FS

// Datastore types
const (
	DatastoreSQLite   = "sqlite"
	DatastoreMySQL    = "mysql"
	DatastorePostgres = "postgres"
)

// Settings is the root of the configuration tree
type Settings struct {
	Debug     bool                 `mapstructure:"debug" yaml:"debug"`
	Datastore DatastoreSettings    `mapstructure:"datastore" yaml:"datastore"`
	Datasets  []string             `mapstructure:"datasets" yaml:"datasets"` // dataset allowlist, e.g. Forest, Grassland
	WebServer WebServerSettings    `mapstructure:"webserver" yaml:"webserver"`
	Sessions  SessionSettings      `mapstructure:"sessions" yaml:"sessions"`
	Metrics   MetricsSettings      `mapstructure:"metrics" yaml:"metrics"`
	Sentry    SentrySettings       `mapstructure:"sentry" yaml:"sentry"`
	Views     ViewSettings         `mapstructure:"views" yaml:"views"`
	Logging   logger.LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// DatastoreSettings selects and configures the observation store
type DatastoreSettings struct {
	Type               string           `mapstructure:"type" yaml:"type"` // sqlite, mysql or postgres
	SQLite             SQLiteSettings   `mapstructure:"sqlite" yaml:"sqlite"`
	MySQL              MySQLSettings    `mapstructure:"mysql" yaml:"mysql"`
	Postgres           PostgresSettings `mapstructure:"postgres" yaml:"postgres"`
	SlowQueryThreshold time.Duration    `mapstructure:"slowquerythreshold" yaml:"slowquerythreshold"`
	FetchTimeout       time.Duration    `mapstructure:"fetchtimeout" yaml:"fetchtimeout"` // upper bound for one dataset load
}

// SQLiteSettings configures the embedded SQLite store
type SQLiteSettings struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// MySQLSettings configures a MySQL store. Password may reference ${VAR};
// PasswordFile takes precedence when set.
type MySQLSettings struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         string `mapstructure:"port" yaml:"port"`
	Username     string `mapstructure:"username" yaml:"username"`
	Password     string `mapstructure:"password" yaml:"password"`
	PasswordFile string `mapstructure:"passwordfile" yaml:"passwordfile"`
	Database     string `mapstructure:"database" yaml:"database"`
}

// PostgresSettings configures a PostgreSQL store, resolving the password like MySQLSettings
type PostgresSettings struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         string `mapstructure:"port" yaml:"port"`
	Username     string `mapstructure:"username" yaml:"username"`
	Password     string `mapstructure:"password" yaml:"password"`
	PasswordFile string `mapstructure:"passwordfile" yaml:"passwordfile"`
	Database     string `mapstructure:"database" yaml:"database"`
	SSLMode      string `mapstructure:"sslmode" yaml:"sslmode"`
}

// WebServerSettings configures the HTTP API
type WebServerSettings struct {
	Port            string        `mapstructure:"port" yaml:"port"`
	AllowedOrigins  []string      `mapstructure:"allowedorigins" yaml:"allowedorigins"`
	BodyLimit       string        `mapstructure:"bodylimit" yaml:"bodylimit"` // echo size notation, e.g. "1M"
	ShutdownTimeout time.Duration `mapstructure:"shutdowntimeout" yaml:"shutdowntimeout"`
}

// SessionSettings controls the per-client dataset caches
type SessionSettings struct {
	IdleTimeout     time.Duration `mapstructure:"idletimeout" yaml:"idletimeout"`
	CleanupInterval time.Duration `mapstructure:"cleanupinterval" yaml:"cleanupinterval"`
}

// MetricsSettings toggles the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// SentrySettings configures optional error reporting
type SentrySettings struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	DSN         string  `mapstructure:"dsn" yaml:"dsn"`
	Environment string  `mapstructure:"environment" yaml:"environment"`
	SampleRate  float64 `mapstructure:"samplerate" yaml:"samplerate"`
}

// ViewSettings tunes view computations
type ViewSettings struct {
	TopPlots         int `mapstructure:"topplots" yaml:"topplots"`                 // spatial view ranking size
	TopSpecies       int `mapstructure:"topspecies" yaml:"topspecies"`             // comparison ranking size
	HistogramBins    int `mapstructure:"histogrambins" yaml:"histogrambins"`       // AOU code histogram
	ScatterMaxPoints int `mapstructure:"scattermaxpoints" yaml:"scattermaxpoints"` // 0 means unlimited
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads config.yaml from the default locations plus environment overrides.
func Load() (*Settings, error) {
	return LoadFile("")
}

// LoadFile reads the given config file, or searches the default locations when path is empty.
func LoadFile(path string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(path); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_config").
			Build()
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// resolveSecrets replaces credential settings with their resolved values.
// Only the selected store's password is resolved so unused ${VAR}
// references do not fail startup.
func resolveSecrets(settings *Settings) error {
	type credential struct {
		name  string
		file  string
		value *string
	}

	var creds []credential
	switch strings.ToLower(strings.TrimSpace(settings.Datastore.Type)) {
	case DatastoreMySQL:
		my := &settings.Datastore.MySQL
		creds = append(creds, credential{"datastore.mysql.password", my.PasswordFile, &my.Password})
	case DatastorePostgres:
		pg := &settings.Datastore.Postgres
		creds = append(creds, credential{"datastore.postgres.password", pg.PasswordFile, &pg.Password})
	}
	if settings.Sentry.Enabled {
		creds = append(creds, credential{"sentry.dsn", "", &settings.Sentry.DSN})
	}

	for _, c := range creds {
		resolved, err := secrets.Resolve(c.file, *c.value)
		if err != nil {
			return errors.New(err).
				Component("configuration").
				Category(errors.CategoryConfiguration).
				Context("setting", c.name).
				Build()
		}
		*c.value = resolved
	}
	return nil
}

// initViper sets defaults, binds the environment and reads the configuration file.
func initViper(path string) error {
	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		// invalid env values are reported but the remaining config still loads
		GetLogger().Warn("environment configuration issues", logger.Error(err))
	}

	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", path, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, p := range configPaths {
		viper.AddConfigPath(p)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig(configPaths[1])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config.yaml into dir and reads it back
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded default config: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil { //nolint:gosec // config is not secret by default
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// DefaultConfig returns the embedded default configuration file contents
func DefaultConfig() []byte {
	data, _ := fs.ReadFile(configFiles, "config.yaml")
	return data
}

// GetSettings returns the most recently loaded settings, or nil
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// GetDefaultConfigPaths returns the directories searched for config.yaml, most specific first.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "get_home_directory").
			Build()
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", "birdobs"),
		"/etc/birdobs",
	}, nil
}

// GetLogger returns the configuration module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
