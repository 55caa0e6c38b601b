package logging

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	lbclogging "github.com/RyanBlaney/latency-benchmark-common/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// The interface, fields and levels are shared with the common benchmark
// libraries so their components log through the same backend.
type (
	Fields = lbclogging.Fields
	Logger = lbclogging.Logger
	Level  = lbclogging.Level
)

const (
	DebugLevel = lbclogging.DebugLevel
	InfoLevel  = lbclogging.InfoLevel
	WarnLevel  = lbclogging.WarnLevel
	ErrorLevel = lbclogging.ErrorLevel
	FatalLevel = lbclogging.FatalLevel
)

func zapLevel(l Level) zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel converts a level name into a Level
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %q", name)
	}
}

// Options controls the process-wide default logger
type Options struct {
	Level  Level
	Format string // "console" or "json"
}

// contextFieldsKey is the context key the common logger reads fields from
const contextFieldsKey = "logger_fields"

var (
	atomicLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	mu          sync.Mutex
)

func init() {
	lbclogging.SetGlobalLogger(&zapLogger{z: build("console"), level: &atomicLevel})
}

func build(format string) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), atomicLevel)
	return zap.New(core)
}

// Configure rebuilds the global logger with the given options
func Configure(opts Options) error {
	format := strings.ToLower(opts.Format)
	if format != "" && format != "console" && format != "json" {
		return fmt.Errorf("unknown log format: %q", opts.Format)
	}

	mu.Lock()
	lbclogging.SetGlobalLogger(&zapLogger{z: build(format), level: &atomicLevel})
	mu.Unlock()

	SetLevel(opts.Level)
	return nil
}

// SetLevel changes the level of the global logger and every logger derived from it
func SetLevel(level Level) {
	lbclogging.SetLevel(level)
}

// NewDefaultLogger returns the global logger
func NewDefaultLogger() Logger {
	mu.Lock()
	defer mu.Unlock()
	return lbclogging.GetGlobalLogger()
}

// NewZapLogger wraps an existing zap logger
func NewZapLogger(z *zap.Logger) Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &zapLogger{z: z}
}

// NewNopLogger discards everything
func NewNopLogger() Logger {
	return &lbclogging.NoOpLogger{}
}

// WithFields returns the global logger carrying fields
func WithFields(fields Fields) Logger {
	return NewDefaultLogger().WithFields(fields)
}

func Debug(msg string, fields ...Fields) { lbclogging.Debug(msg, fields...) }
func Info(msg string, fields ...Fields)  { lbclogging.Info(msg, fields...) }
func Warn(msg string, fields ...Fields)  { lbclogging.Warn(msg, fields...) }

func Error(err error, msg string, fields ...Fields) {
	lbclogging.Error(err, msg, fields...)
}

// zapLogger writes the common Logger interface through zap.
// level is nil for wrapped loggers whose core level is owned elsewhere.
type zapLogger struct {
	z     *zap.Logger
	level *zap.AtomicLevel
}

func (l *zapLogger) Debug(msg string, fields ...Fields) {
	l.z.Debug(msg, toZap(fields)...)
}

func (l *zapLogger) Info(msg string, fields ...Fields) {
	l.z.Info(msg, toZap(fields)...)
}

func (l *zapLogger) Warn(msg string, fields ...Fields) {
	l.z.Warn(msg, toZap(fields)...)
}

func (l *zapLogger) Error(err error, msg string, fields ...Fields) {
	l.z.Error(msg, withError(toZap(fields), err)...)
}

func (l *zapLogger) Fatal(err error, msg string, fields ...Fields) {
	l.z.Fatal(msg, withError(toZap(fields), err)...)
}

func (l *zapLogger) WithFields(fields Fields) Logger {
	return &zapLogger{z: l.z.With(toZap([]Fields{fields})...), level: l.level}
}

func (l *zapLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := ctx.Value(contextFieldsKey).(Fields); ok {
		return l.WithFields(fields)
	}
	return l
}

func (l *zapLogger) SetLevel(level Level) {
	if l.level != nil {
		l.level.SetLevel(zapLevel(level))
	}
}

func withError(fields []zap.Field, err error) []zap.Field {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	return fields
}

// toZap flattens field maps in key order so output is stable
func toZap(fields []Fields) []zap.Field {
	var n int
	for _, f := range fields {
		n += len(f)
	}
	if n == 0 {
		return nil
	}

	out := make([]zap.Field, 0, n)
	for _, f := range fields {
		keys := make([]string, 0, len(f))
		for k := range f {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, zap.Any(k, f[k]))
		}
	}
	return out
}
