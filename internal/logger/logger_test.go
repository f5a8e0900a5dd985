package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		env, level string
		want       slog.Level
	}{
		{"development", "", slog.LevelDebug},
		{"production", "", slog.LevelInfo},
		{"production", "debug", slog.LevelDebug},
		{"development", "WARNING", slog.LevelWarn},
		{"development", "error", slog.LevelError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.env, tt.level), "%s/%s", tt.env, tt.level)
	}
}

func TestProductionLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New("production", "", &buf)

	l.Debug("hidden")
	l.Info("visible", "request_id", "req-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New("production", "info", &buf)

	assert.Same(t, Default(), FromContext(context.Background()))

	ctx := WithContext(context.Background(), base)
	ctx = WithFields(ctx, "document_id", "doc-1")
	FromContext(ctx).Info("scoped")

	assert.Contains(t, buf.String(), `"document_id":"doc-1"`)
}

func TestErrorErrAddsErrorKey(t *testing.T) {
	var buf bytes.Buffer

	prev := Default()
	SetDefault(New("production", "", &buf))
	t.Cleanup(func() { SetDefault(prev) })

	ErrorErr(errors.New("boom"), "write failed", "kind", "outline")

	assert.Contains(t, buf.String(), `"error":"boom"`)
	assert.Contains(t, buf.String(), `"kind":"outline"`)
}
