// Package logger wraps zap behind a small key/value interface shared by every
// crawler component.
package logger

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Interface defines the logger interface.
type Interface interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	Fatal(msg string, fields ...any)
	With(fields ...any) Interface
	// Structured logging helpers
	WithRunID(runID string) Interface
	WithDuration(duration time.Duration) Interface
	WithError(err error) Interface
	WithComponent(component string) Interface
	Sync() error
}

// Common field keys.
const (
	keyRunID     = "run_id"
	keyDuration  = "duration"
	keyError     = "error"
	keyComponent = "component"
	// keyBad marks a value that was not preceded by a string key.
	keyBad = "!BADKEY"
)

// Logger implements Interface on a zap.Logger.
type Logger struct {
	zl *zap.Logger
}

// New builds a logger from config, filling defaults first.
func New(config *Config) (Interface, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	level, _ := config.Level.zapLevel()
	core := zapcore.NewCore(
		newEncoder(config),
		zapcore.NewMultiWriteSyncer(writeSyncers(config)...),
		level,
	)

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if config.Development {
		opts = append(opts, zap.Development())
	}
	return NewFromCore(core, opts...), nil
}

// NewFromCore wraps an existing zap core. Caller annotations skip this package.
func NewFromCore(core zapcore.Core, opts ...zap.Option) Interface {
	opts = append(opts, zap.AddCallerSkip(1))
	return &Logger{zl: zap.New(core, opts...)}
}

// NewNoOp returns a logger that discards everything.
func NewNoOp() Interface {
	return NewFromCore(zapcore.NewNopCore())
}

func newEncoder(config *Config) zapcore.Encoder {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeDuration = zapcore.StringDurationEncoder
	enc.EncodeCaller = zapcore.ShortCallerEncoder
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder

	if config.Development {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
		enc.ConsoleSeparator = " | "
	}

	if config.Encoding == "json" {
		return zapcore.NewJSONEncoder(enc)
	}
	return zapcore.NewConsoleEncoder(enc)
}

// writeSyncers maps output paths to sinks. Anything other than stdout or
// stderr is a file rotated by size.
func writeSyncers(config *Config) []zapcore.WriteSyncer {
	syncers := make([]zapcore.WriteSyncer, 0, len(config.OutputPaths))
	for _, path := range config.OutputPaths {
		switch path {
		case "stdout":
			syncers = append(syncers, zapcore.Lock(os.Stdout))
		case "stderr":
			syncers = append(syncers, zapcore.Lock(os.Stderr))
		default:
			syncers = append(syncers, zapcore.AddSync(&lumberjack.Logger{
				Filename:   path,
				MaxSize:    config.MaxSize,
				MaxBackups: config.MaxBackups,
				MaxAge:     config.MaxAge,
				Compress:   config.Compress,
			}))
		}
	}
	return syncers
}

func (l *Logger) Debug(msg string, fields ...any) { l.zl.Debug(msg, zapFields(fields)...) }
func (l *Logger) Info(msg string, fields ...any) { l.zl.Info(msg, zapFields(fields)...) }
func (l *Logger) Warn(msg string, fields ...any) { l.zl.Warn(msg, zapFields(fields)...) }
func (l *Logger) Error(msg string, fields ...any) { l.zl.Error(msg, zapFields(fields)...) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, fields ...any) { l.zl.Fatal(msg, zapFields(fields)...) }

// With returns a child logger carrying fields on every entry.
func (l *Logger) With(fields ...any) Interface {
	return &Logger{zl: l.zl.With(zapFields(fields)...)}
}

func (l *Logger) WithRunID(runID string) Interface {
	return l.With(keyRunID, runID)
}

func (l *Logger) WithDuration(duration time.Duration) Interface {
	return l.With(keyDuration, duration)
}

func (l *Logger) WithError(err error) Interface {
	return l.With(keyError, err)
}

func (l *Logger) WithComponent(component string) Interface {
	return l.With(keyComponent, component)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

// zapFields converts alternating key/value pairs. zap.Field values pass
// through unchanged; a value without a string key is logged under keyBad.
func zapFields(kv []any) []zap.Field {
	if len(kv) == 0 {
		return nil
	}

	out := make([]zap.Field, 0, len(kv)/2+1)
	for i := 0; i < len(kv); i++ {
		if f, ok := kv[i].(zap.Field); ok {
			out = append(out, f)
			continue
		}

		key, ok := kv[i].(string)
		if !ok || i+1 == len(kv) {
			out = append(out, zap.Any(keyBad, kv[i]))
			continue
		}
		out = append(out, zapField(key, kv[i+1]))
		i++
	}
	return out
}

func zapField(key string, value any) zap.Field {
	switch v := value.(type) {
	case error:
		return zap.NamedError(key, v)
	case time.Duration:
		return zap.Duration(key, v)
	case time.Time:
		return zap.Time(key, v)
	default:
		return zap.Any(key, value)
	}
}
