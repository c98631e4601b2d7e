package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBufferLogger returns a CentralLogger writing JSON records to buf.
func newBufferLogger(t *testing.T, buf *bytes.Buffer, cfg *LoggingConfig) *CentralLogger {
	t.Helper()
	if cfg == nil {
		cfg = &LoggingConfig{DefaultLevel: "debug"}
	}
	applyConfigDefaults(cfg)
	cl := &CentralLogger{
		config:       cfg,
		timezone:     time.UTC,
		moduleLevels: make(map[string]slog.Level),
		baseHandler:  slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: traceLevelValue}),
	}
	for module, level := range cfg.ModuleLevels {
		cl.moduleLevels[module] = parseLogLevel(level)
	}
	return cl
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}
	return records
}

func TestModuleLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	cl := newBufferLogger(t, &buf, nil)

	log := cl.Module("weather")
	log.Info("forecast refreshed",
		String("source", "smhi"),
		Int("samples", 72),
		Float64("temperature", 12.34567),
		Bool("cached", false),
		Duration("elapsed", 1234*time.Microsecond))

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "forecast refreshed", rec["msg"])
	assert.Equal(t, "weather", rec[moduleKey])
	assert.Equal(t, "smhi", rec["source"])
	assert.InDelta(t, 72, rec["samples"], 0)
	assert.InDelta(t, 12.346, rec["temperature"], 1e-9)
	assert.Equal(t, false, rec["cached"])
	assert.Equal(t, "1ms", rec["elapsed"])
}

func TestModuleLogger_SubModuleAndWith(t *testing.T) {
	var buf bytes.Buffer
	cl := newBufferLogger(t, &buf, nil)

	log := cl.Module("weather").Module("smhi").With(String("station", "97200"))
	log.Warn("observation empty")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "weather.smhi", records[0][moduleKey])
	assert.Equal(t, "97200", records[0]["station"])
	assert.Equal(t, "WARN", records[0]["level"])
}

func TestModuleLogger_LevelOverrides(t *testing.T) {
	var buf bytes.Buffer
	cl := newBufferLogger(t, &buf, &LoggingConfig{
		DefaultLevel: "info",
		ModuleLevels: map[string]string{"render": "error", "weather": "debug"},
	})

	cl.Module("render").Warn("dropped")
	cl.Module("render").Error("kept")
	cl.Module("weather").Module("netatmo").Debug("inherits parent level")
	cl.Module("icons").Debug("below default")

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, "kept", records[0]["msg"])
	assert.Equal(t, "weather.netatmo", records[1][moduleKey])
}

func TestModuleLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	cl := newBufferLogger(t, &buf, nil)

	log := cl.Module("render")
	assert.Same(t, log, log.WithContext(context.Background()), "no trace id keeps the logger")

	ctx := WithTraceID(context.Background(), "run-42")
	log.WithContext(ctx).Info("frame rendered")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "run-42", records[0][traceIDKey])
}

func TestErrorField(t *testing.T) {
	assert.Equal(t, "<nil>", Error(nil).Value)
	f := Error(assert.AnError)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, assert.AnError.Error(), f.Value)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", traceLevelValue},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in), tt.in)
	}
}

func TestNewCentralLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "info"},
	})
	require.NoError(t, err)

	cl.Module("suncalc").Info("sun times resolved", String("source", "remote"))
	require.NoError(t, cl.Close())
	require.NoError(t, cl.Close(), "second close is a no-op")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"module":"suncalc"`)
	assert.Contains(t, string(data), `"source":"remote"`)
}

func TestNewCentralLogger_Errors(t *testing.T) {
	_, err := NewCentralLogger(nil)
	require.Error(t, err)

	_, err = NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus_Mons"})
	require.Error(t, err)
}

func TestGlobalFallback(t *testing.T) {
	SetGlobal(nil)
	t.Cleanup(func() { SetGlobal(nil) })

	g := Global()
	require.NotNil(t, g)
	assert.Same(t, g, Global())
	assert.NotNil(t, g.Module("weather"))
}
