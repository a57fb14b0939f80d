package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantError bool
	}{
		{name: "debug level", level: "debug"},
		{name: "info level", level: "info"},
		{name: "warn level", level: "warn"},
		{name: "warning alias", level: "warning"},
		{name: "error level", level: "error"},
		{name: "unknown level", level: "trace", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.level)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter("info", &buf)
	require.NoError(t, err)

	logger.Info("publish started", "user", "TestUser")

	out := buf.String()
	assert.Contains(t, out, "publish started")
	assert.Contains(t, out, "service=publish-service")
	assert.Contains(t, out, "user=TestUser")
}

func TestNewWithWriterLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter("warn", &buf)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	base, err := NewWithWriter("info", &buf)
	require.NoError(t, err)

	child := WithComponent(base, "database")
	child.Info("connected")

	assert.True(t, strings.Contains(buf.String(), "component=database"))
}

func TestParseLogLevel(t *testing.T) {
	level, err := parseLogLevel("ERROR")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, level)
}
