// Package telemetry provides opt-in, privacy-filtered error reporting to Sentry
package telemetry

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/tphakala/birdobs/internal/conf"
	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/logger"
)

// allowedExtra lists the event extras that survive privacy filtering
var allowedExtra = map[string]bool{
	"error_type": true,
	"component":  true,
	"category":   true,
}

var initialized atomic.Bool

// Option adjusts the Sentry client options, mainly for tests
type Option func(*sentry.ClientOptions)

// WithTransport replaces the event transport
func WithTransport(t sentry.Transport) Option {
	return func(o *sentry.ClientOptions) { o.Transport = t }
}

// WithHTTPTransport keeps the default event transport but sends through rt
func WithHTTPTransport(rt http.RoundTripper) Option {
	return func(o *sentry.ClientOptions) { o.HTTPTransport = rt }
}

// Init initializes Sentry when enabled in settings and routes enhanced
// errors to it. It returns false when telemetry is disabled.
func Init(settings *conf.Settings, version string, opts ...Option) (bool, error) {
	log := logger.Global().Module("telemetry")
	if !settings.Sentry.Enabled {
		log.Debug("sentry telemetry is disabled (opt-in required)")
		return false, nil
	}

	options := sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       settings.Sentry.SampleRate,
		Environment:      settings.Sentry.Environment,
		Release:          fmt.Sprintf("birdobs@%s", version),
		AttachStacktrace: false,
		ServerName:       "", // never leak the hostname
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	}
	for _, opt := range opts {
		opt(&options)
	}

	if err := sentry.Init(options); err != nil {
		return false, errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("datastore", settings.Datastore.Type)
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized.Store(true)

	log.Info("sentry telemetry initialized",
		logger.String("environment", settings.Sentry.Environment),
		logger.Float64("sample_rate", settings.Sentry.SampleRate))
	return true, nil
}

// applyPrivacyFilters strips identifying data from an event before it leaves the process
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if !allowedExtra[k] {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	event.Message = errors.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = errors.ScrubMessage(event.Exception[i].Value)
	}
	return event
}

// Shutdown flushes pending events and detaches the error reporter
func Shutdown(timeout time.Duration) {
	if !initialized.CompareAndSwap(true, false) {
		return
	}
	errors.SetTelemetryReporter(nil)
	sentry.Flush(timeout)
}
