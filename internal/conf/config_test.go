package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/birdobs/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := writeConfig(t, `
datastore:
  type: MySQL
  mysql:
    host: db.internal
    database: observations
datasets: [Forest, Grassland, Wetland]
`)

	settings, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, DatastoreMySQL, settings.Datastore.Type, "type is normalised")
	assert.Equal(t, "db.internal", settings.Datastore.MySQL.Host)
	assert.Equal(t, "3306", settings.Datastore.MySQL.Port)
	assert.Equal(t, []string{"Forest", "Grassland", "Wetland"}, settings.Datasets)
	assert.Equal(t, 30*time.Minute, settings.Sessions.IdleTimeout)
	assert.Equal(t, 30, settings.Views.HistogramBins)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
	assert.Same(t, settings, GetSettings())
}

func TestLoadFileEnvironmentOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("BIRDOBS_PORT", "9090")
	t.Setenv("BIRDOBS_SQLITE_PATH", "/var/lib/birdobs/obs.db")

	settings, err := LoadFile(writeConfig(t, "webserver:\n  port: \"8080\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "9090", settings.WebServer.Port)
	assert.Equal(t, "/var/lib/birdobs/obs.db", settings.Datastore.SQLite.Path)
}

func TestLoadFileResolvesSecrets(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	secretPath := filepath.Join(t.TempDir(), "mysql_password")
	require.NoError(t, os.WriteFile(secretPath, []byte("from-file\n"), 0o600))
	t.Setenv("BIRDOBS_TEST_SENTRY_DSN", "https://key@sentry.example/1")

	settings, err := LoadFile(writeConfig(t, `datastore:
  type: MySQL
  mysql:
    host: db
    database: birdobs
    password: ignored
    passwordfile: `+secretPath+`
  postgres:
    password: ${BIRDOBS_TEST_UNSET_PASSWORD}
sentry:
  enabled: true
  dsn: ${BIRDOBS_TEST_SENTRY_DSN}
`))
	require.NoError(t, err)

	assert.Equal(t, "from-file", settings.Datastore.MySQL.Password)
	assert.Equal(t, "https://key@sentry.example/1", settings.Sentry.DSN)
	// unused store credentials stay unresolved
	assert.Equal(t, "${BIRDOBS_TEST_UNSET_PASSWORD}", settings.Datastore.Postgres.Password)
}

func TestLoadFileMissingSecret(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := LoadFile(writeConfig(t, "datastore:\n  type: postgres\n  postgres:\n    password: ${BIRDOBS_TEST_UNSET_PASSWORD}\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestLoadFileValidationFailure(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := LoadFile(writeConfig(t, "datastore:\n  type: oracle\n"))
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 1)
	assert.Contains(t, ve.Errors[0], "oracle")
}

func TestLoadFileMissing(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestDefaultsAreValid(t *testing.T) {
	t.Parallel()

	settings := Defaults()
	require.NoError(t, ValidateSettings(settings))
	assert.Equal(t, []string{"Forest", "Grassland"}, settings.Datasets)
	assert.Equal(t, DatastoreSQLite, settings.Datastore.Type)
	assert.NotEmpty(t, DefaultConfig())
}

func TestEmbeddedConfigMatchesDefaults(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytesReader(DefaultConfig())))

	fromFile := &Settings{}
	require.NoError(t, v.Unmarshal(fromFile))

	defaults := Defaults()
	assert.Equal(t, defaults.Datasets, fromFile.Datasets)
	assert.Equal(t, defaults.Datastore.Type, fromFile.Datastore.Type)
	assert.Equal(t, defaults.Sessions, fromFile.Sessions)
	assert.Equal(t, defaults.Views, fromFile.Views)
	assert.Equal(t, defaults.WebServer.Port, fromFile.WebServer.Port)
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid defaults", func(*Settings) {}, ""},
		{"no datasets", func(s *Settings) { s.Datasets = nil }, "at least one dataset"},
		{"unsafe dataset name", func(s *Settings) { s.Datasets = []string{"forest; drop table x"} }, "must start with a letter"},
		{"reserved dataset name", func(s *Settings) { s.Datasets = []string{"Compare"} }, "reserved"},
		{"duplicate dataset", func(s *Settings) { s.Datasets = []string{"Forest", "forest"} }, "configured twice"},
		{"bad port", func(s *Settings) { s.WebServer.Port = "http" }, "not a valid port"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "sentry.dsn"},
		{"zero bins", func(s *Settings) { s.Views.HistogramBins = 0 }, "views.topplots"},
		{"zero idle timeout", func(s *Settings) { s.Sessions.IdleTimeout = 0 }, "idletimeout"},
		{"postgres without host", func(s *Settings) {
			s.Datastore.Type = DatastorePostgres
			s.Datastore.Postgres.Host = ""
		}, "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			settings := Defaults()
			tt.mutate(settings)
			err := ValidateSettings(settings)

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidationErrorCategory(t *testing.T) {
	t.Parallel()

	settings := Defaults()
	settings.Datasets = nil

	var categorized errors.CategorizedError
	require.True(t, errors.As(ValidateSettings(settings), &categorized))
	assert.Equal(t, errors.CategoryConfiguration, categorized.ErrorCategory())
}

func TestHasDataset(t *testing.T) {
	t.Parallel()

	settings := Defaults()

	name, ok := settings.HasDataset("forest")
	assert.True(t, ok)
	assert.Equal(t, "Forest", name)

	_, ok = settings.HasDataset("Tundra")
	assert.False(t, ok)
}

func TestEnvValidation(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateEnvPort("8080"))
	assert.Error(t, validateEnvPort("0"))
	assert.Error(t, validateEnvPort("abc"))
	assert.NoError(t, validateEnvDatastoreType("Postgres"))
	assert.Error(t, validateEnvDatastoreType("oracle"))
	assert.NoError(t, validateEnvLogLevel("TRACE"))
	assert.Error(t, validateEnvBool("maybe"))
}
