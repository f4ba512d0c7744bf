package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"chatty", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := newLogger(tt.level, "text", &bytes.Buffer{})
			assert.True(t, l.Enabled(context.Background(), tt.want))
			assert.False(t, l.Enabled(context.Background(), tt.want-1))
		})
	}
}

func TestNewLoggerJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	newLogger("info", "json", buf).Info("cleanup started", "resources", 2)
	assert.Contains(t, buf.String(), `"msg":"cleanup started"`)
	assert.Contains(t, buf.String(), `"resources":2`)
}
