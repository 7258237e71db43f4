package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	_ Logger = (*SlogAdapter)(nil)
	_ Logger = (*ScreenLogger)(nil)
	_ Logger = (*ZapAdapter)(nil)
	_ Logger = NoOpLogger{}
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestScreenLogger_ContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultLoggerConfig()
	cfg.Output = &buf
	cfg.Level = LogLevelDebug
	cfg.CustomAttrs = map[string]any{"user": "user-7"}

	l := NewLogger(cfg).WithComponent("engine").WithScreen("search", "eng-1")
	l.Info("input received", "input", "query")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "input received", lines[0]["msg"])
	assert.Equal(t, "engine", lines[0]["component"])
	assert.Equal(t, "search", lines[0]["screen"])
	assert.Equal(t, "eng-1", lines[0]["engine_id"])
	assert.Equal(t, "user-7", lines[0]["user"])
	assert.Equal(t, "query", lines[0]["input"])
}

func TestScreenLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultLoggerConfig()
	cfg.Output = &buf
	cfg.Level = LogLevelWarn

	l := NewLogger(cfg)
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.LogCall("search", 0, nil)
	l.LogCall("search", 0, errors.New("timeout"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "shown", lines[0]["msg"])
	assert.Equal(t, "Collaborator call failed", lines[1]["msg"])
	assert.Equal(t, "timeout", lines[1]["error"])
}

func TestScreenLogger_WithDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultLoggerConfig()
	cfg.Output = &buf

	base := NewLogger(cfg)
	_ = base.WithScreen("search", "eng-1")
	base.Info("plain")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	_, ok := lines[0]["screen"]
	assert.False(t, ok)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{"debug": LogLevelDebug, "INFO": LogLevelInfo, "warning": LogLevelWarn, "error": LogLevelError, "": LogLevelInfo} {
		got, err := ParseLevel(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerConfig_WriterRotatesToFile(t *testing.T) {
	cfg := DefaultLoggerConfig()
	cfg.Filename = filepath.Join(t.TempDir(), "viewflow.log")

	w, ok := cfg.Writer().(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, cfg.Filename, w.Filename)
	assert.Equal(t, 50, w.MaxSize)
	require.NoError(t, w.Close())
}

func TestZapAdapter(t *testing.T) {
	zcore, logs := observer.New(zapcore.DebugLevel)
	l := NewZapAdapter(zap.New(zcore))

	l.Info("engine created", "screen", "search")
	l.Error("call failed", "call", "search")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "engine created", entries[0].Message)
	assert.Equal(t, "search", entries[0].ContextMap()["screen"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)

	assert.NotPanics(t, func() { NewZapAdapter(nil).Debug("nop") })
}

func TestNewZapLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultLoggerConfig()
	cfg.Output = &buf
	cfg.Level = LogLevelWarn
	cfg.CustomAttrs = map[string]any{"app": "viewflow"}

	l := NewZapLogger(cfg).WithComponent("engine").WithScreen("search", "eng-1")
	l.Info("hidden")
	l.LogCall("search", 0, nil)
	l.LogCall("search", 0, errors.New("timeout"))
	require.NoError(t, l.Sync())

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "Collaborator call failed", lines[0]["msg"])
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "engine", lines[0]["component"])
	assert.Equal(t, "search", lines[0]["screen"])
	assert.Equal(t, "eng-1", lines[0]["engine_id"])
	assert.Equal(t, "viewflow", lines[0]["app"])
	assert.Equal(t, "timeout", lines[0]["error"])
}

func TestForComponentAndScreen(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultLoggerConfig()
	cfg.Output = &buf

	l := ForScreen(ForComponent(NewLogger(cfg), "screen"), "search", "eng-1")
	l.Info("tagged")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "screen", lines[0]["component"])
	assert.Equal(t, "search", lines[0]["screen"])

	zcore, logs := observer.New(zapcore.DebugLevel)
	ForComponent(NewZapAdapter(zap.New(zcore)), "api").Info("tagged")
	require.Len(t, logs.All(), 1)
	assert.Equal(t, "api", logs.All()[0].ContextMap()["component"])

	// Loggers without tagging support pass through.
	assert.Equal(t, Logger(NoOpLogger{}), ForComponent(NoOpLogger{}, "api"))
}
