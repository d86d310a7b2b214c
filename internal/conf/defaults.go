// conf/defaults.go default values for settings
package conf

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig registers default values on the global viper instance.
func setDefaultConfig() {
	setDefaults(viper.GetViper())
}

// Defaults returns settings built from default values only, ignoring config files and environment.
func Defaults() *Settings {
	v := viper.New()
	setDefaults(v)

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		panic(fmt.Sprintf("conf: defaults do not unmarshal: %v", err))
	}
	return settings
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("datastore.type", DatastoreSQLite)
	v.SetDefault("datastore.sqlite.path", "birdobs.db")
	v.SetDefault("datastore.mysql.host", "localhost")
	v.SetDefault("datastore.mysql.port", "3306")
	v.SetDefault("datastore.mysql.database", "birdobs")
	v.SetDefault("datastore.postgres.host", "localhost")
	v.SetDefault("datastore.postgres.port", "5432")
	v.SetDefault("datastore.postgres.database", "birdobs")
	v.SetDefault("datastore.postgres.sslmode", "disable")
	v.SetDefault("datastore.slowquerythreshold", 500*time.Millisecond)
	v.SetDefault("datastore.fetchtimeout", 30*time.Second)

	v.SetDefault("datasets", []string{"Forest", "Grassland"})

	v.SetDefault("webserver.port", "8080")
	v.SetDefault("webserver.allowedorigins", []string{"*"})
	v.SetDefault("webserver.bodylimit", "1M")
	v.SetDefault("webserver.shutdowntimeout", 10*time.Second)

	v.SetDefault("sessions.idletimeout", 30*time.Minute)
	v.SetDefault("sessions.cleanupinterval", 5*time.Minute)

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("sentry.samplerate", 1.0)

	v.SetDefault("views.topplots", 10)
	v.SetDefault("views.topspecies", 20)
	v.SetDefault("views.histogrambins", 30)
	v.SetDefault("views.scattermaxpoints", 0)

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/birdobs.log")
	v.SetDefault("logging.file_output.level", "debug")
}
