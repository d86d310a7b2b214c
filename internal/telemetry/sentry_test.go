package telemetry

import (
	"context"
	"net/http"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/birdobs/internal/conf"
	"github.com/tphakala/birdobs/internal/errors"
)

// mockTransport captures events instead of sending them
type mockTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *mockTransport) Configure(sentry.ClientOptions) {}

func (t *mockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *mockTransport) Flush(time.Duration) bool              { return true }
func (t *mockTransport) FlushWithContext(context.Context) bool { return true }
func (t *mockTransport) Close()                                {}

func (t *mockTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

func enabledSettings() *conf.Settings {
	settings := conf.Defaults()
	settings.Sentry.Enabled = true
	settings.Sentry.DSN = "https://public@example.com/1"
	settings.Sentry.SampleRate = 1.0
	return settings
}

func TestInitDisabled(t *testing.T) {
	enabled, err := Init(conf.Defaults(), "test")
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.Nil(t, errors.GetTelemetryReporter())
}

func TestEnhancedErrorsAreReportedAndScrubbed(t *testing.T) {
	transport := &mockTransport{}
	enabled, err := Init(enabledSettings(), "test", WithTransport(transport))
	require.NoError(t, err)
	require.True(t, enabled)
	t.Cleanup(func() { Shutdown(time.Second) })

	_ = errors.Newf("dial mysql://birdobs:hunter2@db:3306 failed").
		Component("datastore").
		Category(errors.CategoryDatabase).
		Build()

	require.Eventually(t, func() bool { return len(transport.Events()) == 1 }, time.Second, 10*time.Millisecond)
	event := transport.Events()[0]
	assert.NotContains(t, event.Message, "hunter2")
	assert.Equal(t, "datastore", event.Tags["component"])
	assert.Equal(t, "database", event.Tags["category"])
	assert.Empty(t, event.ServerName)
}

func TestEventsAreDeliveredOverHTTP(t *testing.T) {
	mock := httpmock.NewMockTransport()
	mock.RegisterRegexpResponder(http.MethodPost, regexp.MustCompile(`^https://example\.com/api/1/`),
		httpmock.NewStringResponder(http.StatusOK, `{}`))

	_, err := Init(enabledSettings(), "test", WithHTTPTransport(mock))
	require.NoError(t, err)
	t.Cleanup(func() { Shutdown(time.Second) })

	_ = errors.Newf("connection to database lost").
		Component("datastore").
		Category(errors.CategoryDatabase).
		Build()

	require.Eventually(t, func() bool { return mock.GetTotalCallCount() > 0 }, 5*time.Second, 20*time.Millisecond)
}

func TestShutdownDetachesReporter(t *testing.T) {
	_, err := Init(enabledSettings(), "test", WithTransport(&mockTransport{}))
	require.NoError(t, err)
	require.NotNil(t, errors.GetTelemetryReporter())

	Shutdown(time.Second)
	assert.Nil(t, errors.GetTelemetryReporter())
	// second call is a no-op
	Shutdown(time.Second)
}

func TestApplyPrivacyFilters(t *testing.T) {
	event := sentry.NewEvent()
	event.User = sentry.User{ID: "42", IPAddress: "10.0.0.1"}
	event.ServerName = "birdhost"
	event.Contexts = map[string]sentry.Context{"os": {"name": "linux"}, "trace": {}}
	event.Extra = map[string]any{"component": "views", "path": "/home/alice"}
	event.Tags = map[string]string{"hostname": "birdhost", "category": "database"}
	event.Message = "GET https://example.com/api?token=abc failed"

	out := applyPrivacyFilters(event)
	assert.True(t, out.User.IsEmpty())
	assert.Empty(t, out.ServerName)
	assert.NotContains(t, out.Contexts, "os")
	assert.Contains(t, out.Contexts, "trace")
	assert.Equal(t, map[string]any{"component": "views"}, out.Extra)
	assert.Equal(t, map[string]string{"category": "database"}, out.Tags)
	assert.NotContains(t, out.Message, "abc")
}
