package logger

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerWritesServiceFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger("watcher", Options{Level: "warn", Dir: dir})
	require.NoError(t, err)

	l.Info("dropped by level")
	l.Warn("kept", zap.String("symbol", "EOS"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(filepath.Join(dir, "watcher.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, sonic.UnmarshalString(lines[0], &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "watcher", entry["service"])
	assert.Equal(t, "EOS", entry["symbol"])
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger("watcher", Options{Level: "loud", Dir: t.TempDir()})
	assert.Error(t, err)
}

func TestSetLogLevelKeepsCurrentOnUnknown(t *testing.T) {
	_, err := NewLogger("watcher", Options{Level: "info", Dir: t.TempDir()})
	require.NoError(t, err)

	SetLogLevel("debug")
	assert.Equal(t, "debug", logLevel.Level().String())
	SetLogLevel("loud")
	assert.Equal(t, "debug", logLevel.Level().String())
}

func TestTraceSampleRatio(t *testing.T) {
	never := InitTrace("eos-watcher", "test", 0)
	_, span := StartSpan(context.Background(), "test", "unsampled")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()
	require.NoError(t, never.Shutdown(context.Background()))

	always := InitTrace("eos-watcher", "test", 1)
	defer func() { _ = always.Shutdown(context.Background()) }()
	ctx, span := StartSpan(context.Background(), "test", "sampled")
	defer span.End()
	assert.True(t, span.SpanContext().IsSampled())
	assert.True(t, span.SpanContext().IsValid())

	// 有效 span 才附加 trace 字段
	nop := zap.NewNop()
	assert.NotSame(t, nop, NewLoggerWithTrace(ctx, nop))
	assert.Same(t, nop, NewLoggerWithTrace(context.Background(), nop))
}

func TestStartSpanWithRequestContinuesParent(t *testing.T) {
	tp := InitTrace("eos-watcher", "test", 1)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	r := httptest.NewRequest("GET", "/v1/balances/EOS", nil)
	r.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	_, span := StartSpanWithRequest(r, "test", "request")
	defer span.End()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", span.SpanContext().TraceID().String())
}
