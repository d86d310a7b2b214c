// env.go - environment variable overrides for birdobs settings
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding maps one environment variable onto a config key
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "BIRDOBS_DEBUG", validateEnvBool},

		{"datastore.type", "BIRDOBS_DATASTORE_TYPE", validateEnvDatastoreType},
		{"datastore.sqlite.path", "BIRDOBS_SQLITE_PATH", validateEnvNonEmpty},
		{"datastore.mysql.host", "BIRDOBS_MYSQL_HOST", validateEnvNonEmpty},
		{"datastore.mysql.port", "BIRDOBS_MYSQL_PORT", validateEnvPort},
		{"datastore.mysql.username", "BIRDOBS_MYSQL_USERNAME", nil},
		{"datastore.mysql.password", "BIRDOBS_MYSQL_PASSWORD", nil},
		{"datastore.mysql.passwordfile", "BIRDOBS_MYSQL_PASSWORD_FILE", validateEnvNonEmpty},
		{"datastore.mysql.database", "BIRDOBS_MYSQL_DATABASE", validateEnvNonEmpty},
		{"datastore.postgres.host", "BIRDOBS_POSTGRES_HOST", validateEnvNonEmpty},
		{"datastore.postgres.port", "BIRDOBS_POSTGRES_PORT", validateEnvPort},
		{"datastore.postgres.username", "BIRDOBS_POSTGRES_USERNAME", nil},
		{"datastore.postgres.password", "BIRDOBS_POSTGRES_PASSWORD", nil},
		{"datastore.postgres.passwordfile", "BIRDOBS_POSTGRES_PASSWORD_FILE", validateEnvNonEmpty},
		{"datastore.postgres.database", "BIRDOBS_POSTGRES_DATABASE", validateEnvNonEmpty},

		{"webserver.port", "BIRDOBS_PORT", validateEnvPort},
		{"metrics.enabled", "BIRDOBS_METRICS_ENABLED", validateEnvBool},
		{"sentry.enabled", "BIRDOBS_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "BIRDOBS_SENTRY_DSN", nil},
		{"logging.default_level", "BIRDOBS_LOG_LEVEL", validateEnvLogLevel},
	}
}

// bindEnvVars binds every variable and collects validation problems
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if value, ok := os.LookupEnv(binding.EnvVar); ok {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvNonEmpty(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func validateEnvDatastoreType(value string) error {
	switch strings.ToLower(value) {
	case DatastoreSQLite, DatastoreMySQL, DatastorePostgres:
		return nil
	default:
		return fmt.Errorf("must be one of sqlite, mysql, postgres")
	}
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("must be one of trace, debug, info, warn, error")
	}
}

// configureEnvironmentVariables sets up environment variable support for viper
func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}
