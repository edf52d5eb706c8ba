package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/lendrules/pkg/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestNew_JSONWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)

	ctx := WithLender(WithRequestID(context.Background(), "req-1"), "AXIS")
	logger.DebugContext(ctx, "rule created", "rule_id", "r1")

	line := decodeLine(t, &buf)
	assert.Equal(t, "rule created", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "AXIS", line["lender"])
	assert.Equal(t, "r1", line["rule_id"])
	assert.NotContains(t, line, "trace_id")
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.With("component", "store").Warn("shown")
	assert.Contains(t, buf.String(), "component=store")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "loud"}, nil)
	assert.Error(t, err)

	_, err = New(config.LoggingConfig{Format: "xml"}, nil)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestRedactor(t *testing.T) {
	r := NewRedactor([]string{"income"})
	rec := map[string]any{"income": 52000, "age": 30}

	masked := r.Record(rec)
	assert.Equal(t, Redacted, masked["income"])
	assert.Equal(t, 30, masked["age"])
	assert.Equal(t, 52000, rec["income"], "input must not change")

	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Format: "json", RedactFields: []string{"income"}}, &buf)
	require.NoError(t, err)
	logger.Info("evaluate", "record", rec, "income", 10)

	line := decodeLine(t, &buf)
	assert.Equal(t, Redacted, line["income"])
	assert.Equal(t, Redacted, line["record"].(map[string]any)["income"])

	assert.False(t, NewRedactor(nil).Enabled())
	assert.Equal(t, rec, NewRedactor(nil).Record(rec))
}

func TestDefault(t *testing.T) {
	assert.Same(t, slog.Default(), Default(nil))
	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, l, Default(l))
}
