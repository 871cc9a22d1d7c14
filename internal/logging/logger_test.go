package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	logger.WithComponent("compiler").
		With("page_id", "landing").
		Warn(context.Background(), errors.New("missing alt"), "validator warning", "count", 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "validator warning", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "compiler", entry["component"])
	assert.Equal(t, "landing", entry["page_id"])
	assert.Equal(t, "missing alt", entry["error"])
	assert.Equal(t, float64(2), entry["count"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Output: &buf})
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	assert.Empty(t, buf.String())

	logger.Error(ctx, errors.New("boom"), "error message")
	assert.Contains(t, buf.String(), "error message")
}

func TestWithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(&LoggerConfig{Level: LevelInfo, Output: &buf})
	_ = parent.With("child", true)

	parent.Info(context.Background(), "parent message")
	assert.NotContains(t, buf.String(), "child=true")
}

func TestPerfLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Output: &buf})

	op := StartOperation(logger, "compile")
	op.End(context.Background(), "sections", 3)

	out := buf.String()
	assert.True(t, strings.Contains(out, "operation=compile"))
	assert.Contains(t, out, "sections=3")
	assert.Contains(t, out, `msg="compile finished"`)
	assert.Contains(t, out, "elapsed=")

	buf.Reset()
	StartOperation(logger, "publish").EndWithError(context.Background(), errors.New("disk full"))
	assert.Contains(t, buf.String(), `msg="publish failed"`)
	assert.Contains(t, buf.String(), `error="disk full"`)
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Info(context.Background(), "ignored")
		logger.Error(context.Background(), errors.New("x"), "ignored")
	})
}
