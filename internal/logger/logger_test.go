package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo, time.UTC).Module("pipeline")

	log.Debug("hidden")
	log.Info("visible", String("dataset", "Forest"), Int("rows", 42))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "module=pipeline")
	assert.Contains(t, out, "dataset=Forest")
	assert.Contains(t, out, "rows=42")
}

func TestTraceLevelName(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelTrace, time.UTC)
	log.Trace("sql")

	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestSubModuleAndWith(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := NewSlogLogger(&buf, LogLevelDebug, time.UTC).Module("api")
	child := base.Module("sessions").With(String("session", "abc"))

	child.Debug("created")
	base.Debug("parent")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "module=api.sessions")
	assert.Contains(t, lines[0], "session=abc")
	assert.NotContains(t, lines[1], "session=abc")
}

func TestWithContextTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo, time.UTC)

	log.WithContext(WithTraceID(context.Background(), "req-1")).Info("handled")
	log.WithContext(context.Background()).Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=req-1")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestFieldToAttr(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.235, fieldToAttr(Float64("x", 1.23456)).Value.Float64(), 1e-9)
	assert.Equal(t, "150ms", fieldToAttr(Duration("d", 150*time.Millisecond)).Value.String())
	assert.Equal(t, "Date,Temperature", fieldToAttr(Strings("cols", []string{"Date", "Temperature"})).Value.String())
	assert.Equal(t, "boom", fieldToAttr(Error(errors.New("boom"))).Value.String())
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, traceLevelValue, parseLogLevel("trace"))
	assert.Equal(t, parseLogLevel("warn"), parseLogLevel("WARNING"))
	assert.Equal(t, parseLogLevel("info"), parseLogLevel("nonsense"))
}

func TestCentralLoggerFileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "birdobs.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"datastore": "debug"},
	})
	require.NoError(t, err)

	cl.Module("datastore").Debug("opened", String("type", "sqlite"))
	cl.Module("api").Debug("dropped")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "opened", record["msg"])
	assert.Equal(t, "datastore", record["module"])
	assert.Equal(t, "sqlite", record["type"])
}

func TestCentralLoggerInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)

	_, err = NewCentralLogger(nil)
	require.Error(t, err)
}

func TestBufferedFileWriterCloseTwice(t *testing.T) {
	t.Parallel()

	w, err := NewBufferedFileWriter(filepath.Join(t.TempDir(), "a.log"), 10*time.Millisecond)
	require.NoError(t, err)

	_, err = w.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late\n"))
	require.ErrorIs(t, err, os.ErrClosed)
}
