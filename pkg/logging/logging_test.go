package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	lbclogging "github.com/RyanBlaney/latency-benchmark-common/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core)).WithFields(Fields{"component": "test"})

	logger.Warn("sub-feature failed", Fields{"feature": "mfcc"})
	logger.Error(errors.New("boom"), "decode failed")

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "sub-feature failed", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "test", ctx["component"])
	assert.Equal(t, "mfcc", ctx["feature"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestConfigureRejectsUnknownFormat(t *testing.T) {
	assert.Error(t, Configure(Options{Format: "xml"}))
	assert.NoError(t, Configure(Options{Level: InfoLevel, Format: "console"}))
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Debug("ignored")
		logger.WithFields(Fields{"a": 1}).Error(nil, "ignored")
	})
}

func TestZapLoggerContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	ctx := context.WithValue(context.Background(), contextFieldsKey, Fields{"path": "a.wav"})
	logger.WithContext(ctx).Info("decoded")
	logger.WithContext(context.Background()).Info("plain")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "a.wav", entries[0].ContextMap()["path"])
	assert.Empty(t, entries[1].ContextMap())
}

func TestGlobalLoggerIsZapBacked(t *testing.T) {
	require.NoError(t, Configure(Options{Level: WarnLevel, Format: "json"}))
	t.Cleanup(func() { _ = Configure(Options{Level: InfoLevel}) })

	global := lbclogging.GetGlobalLogger()
	assert.IsType(t, &zapLogger{}, global)
	assert.Same(t, global, NewDefaultLogger())
	assert.Equal(t, zapcore.WarnLevel, atomicLevel.Level())

	SetLevel(DebugLevel)
	assert.Equal(t, zapcore.DebugLevel, atomicLevel.Level())
}
