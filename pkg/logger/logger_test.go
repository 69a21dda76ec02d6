package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, slog.LevelInfo)

	log.Debug("below threshold")
	log.Info("kept")

	out := buf.String()
	assert.NotContains(t, out, "below threshold")
	assert.Contains(t, out, "kept")
}

func TestHandlerColors(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, slog.LevelDebug)

	log.Error("boom")
	assert.Contains(t, buf.String(), colorRed)

	buf.Reset()
	log.Warn("careful")
	assert.Contains(t, buf.String(), colorYellow)

	buf.Reset()
	log.Info("version registered", "seq", 2)
	assert.Contains(t, buf.String(), colorGreen)

	buf.Reset()
	log.Info("plain message")
	assert.NotContains(t, buf.String(), "\033[3")
}

func TestHandlerAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, slog.LevelDebug).With("component", "planner")

	log.Info("query executed", "k", 5)
	out := buf.String()
	assert.Contains(t, out, "component=planner")
	assert.Contains(t, out, "k=5")
}

func TestHandlerGroup(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, slog.LevelDebug).WithGroup("index"))

	log.Info("search", "backend", "hnsw")
	assert.Contains(t, buf.String(), "index.backend=hnsw")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(strings.ToUpper(in)), in)
	}
}
