// conf/validate.go

package conf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tphakala/birdobs/internal/errors"
)

// datasetNamePattern restricts dataset names to safe SQL identifiers
var datasetNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,62}$`)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %v", ve.Errors)
}

// ErrorCategory marks validation failures as configuration problems
func (ve ValidationError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryConfiguration
}

// ValidateSettings validates the entire Settings struct, normalising values where safe
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateDatastoreSettings,
		validateDatasets,
		validateWebServerSettings,
		validateSessionSettings,
		validateSentrySettings,
		validateViewSettings,
	}

	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDatastoreSettings(settings *Settings) error {
	ds := &settings.Datastore
	ds.Type = strings.ToLower(strings.TrimSpace(ds.Type))

	switch ds.Type {
	case DatastoreSQLite:
		if ds.SQLite.Path == "" {
			return fmt.Errorf("datastore.sqlite.path is required")
		}
	case DatastoreMySQL:
		if ds.MySQL.Host == "" || ds.MySQL.Database == "" {
			return fmt.Errorf("datastore.mysql host and database are required")
		}
	case DatastorePostgres:
		if ds.Postgres.Host == "" || ds.Postgres.Database == "" {
			return fmt.Errorf("datastore.postgres host and database are required")
		}
	default:
		return fmt.Errorf("datastore.type %q is not one of sqlite, mysql, postgres", ds.Type)
	}

	if ds.FetchTimeout < 0 || ds.SlowQueryThreshold < 0 {
		return fmt.Errorf("datastore timeouts must not be negative")
	}
	return nil
}

func validateDatasets(settings *Settings) error {
	if len(settings.Datasets) == 0 {
		return fmt.Errorf("at least one dataset must be configured")
	}

	seen := make(map[string]bool, len(settings.Datasets))
	for _, name := range settings.Datasets {
		if !datasetNamePattern.MatchString(name) {
			return fmt.Errorf("dataset name %q must start with a letter and contain only letters, digits and underscores", name)
		}
		key := strings.ToLower(name)
		if key == "compare" {
			return fmt.Errorf("dataset name %q is reserved", name)
		}
		if seen[key] {
			return fmt.Errorf("dataset %q is configured twice", name)
		}
		seen[key] = true
	}
	return nil
}

func validateWebServerSettings(settings *Settings) error {
	port, err := strconv.Atoi(settings.WebServer.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver.port %q is not a valid port", settings.WebServer.Port)
	}
	return nil
}

func validateSessionSettings(settings *Settings) error {
	if settings.Sessions.IdleTimeout <= 0 {
		return fmt.Errorf("sessions.idletimeout must be positive")
	}
	if settings.Sessions.CleanupInterval <= 0 {
		return fmt.Errorf("sessions.cleanupinterval must be positive")
	}
	return nil
}

func validateSentrySettings(settings *Settings) error {
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		return fmt.Errorf("sentry.dsn is required when sentry is enabled")
	}
	if settings.Sentry.SampleRate < 0 || settings.Sentry.SampleRate > 1 {
		return fmt.Errorf("sentry.samplerate must be between 0 and 1")
	}
	return nil
}

func validateViewSettings(settings *Settings) error {
	v := settings.Views
	if v.TopPlots < 1 || v.TopSpecies < 1 || v.HistogramBins < 1 {
		return fmt.Errorf("views.topplots, views.topspecies and views.histogrambins must be at least 1")
	}
	if v.ScatterMaxPoints < 0 {
		return fmt.Errorf("views.scattermaxpoints must not be negative")
	}
	return nil
}

// HasDataset reports whether name is in the configured allowlist (case-insensitive)
// and returns its canonical spelling.
func (s *Settings) HasDataset(name string) (string, bool) {
	for _, ds := range s.Datasets {
		if strings.EqualFold(ds, name) {
			return ds, true
		}
	}
	return "", false
}
