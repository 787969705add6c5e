// Package logger provides structured logging for the crawler.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Interface is the logging interface injected into components. Fields are
// alternating key-value pairs.
type Interface interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	With(fields ...any) Interface
}

// logLevels maps config strings to zap levels.
var logLevels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// Logger implements Interface on top of zap.
type Logger struct {
	zapLogger *zap.Logger
}

// New creates a logger. level is one of debug, info, warn, error;
// development selects the human-readable console encoder.
func New(level string, development bool) (*Logger, error) {
	zapLevel, ok := logLevels[level]
	if !ok {
		return nil, fmt.Errorf("invalid log level %q", level)
	}

	var encoderConfig zapcore.EncoderConfig
	var encoder zapcore.Encoder
	if development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zapLevel)
	return &Logger{zapLogger: zap.New(core, zap.AddCaller())}, nil
}

func (l *Logger) Debug(msg string, fields ...any) {
	l.zapLogger.Debug(msg, toZapFields(fields)...)
}

func (l *Logger) Info(msg string, fields ...any) {
	l.zapLogger.Info(msg, toZapFields(fields)...)
}

func (l *Logger) Warn(msg string, fields ...any) {
	l.zapLogger.Warn(msg, toZapFields(fields)...)
}

func (l *Logger) Error(msg string, fields ...any) {
	l.zapLogger.Error(msg, toZapFields(fields)...)
}

// With returns a logger with the given fields attached to every entry.
func (l *Logger) With(fields ...any) Interface {
	return &Logger{zapLogger: l.zapLogger.With(toZapFields(fields)...)}
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.zapLogger.Sync()
}

// toZapFields converts alternating key-value pairs to zap fields. A trailing
// key without a value is logged under the "dangling" key rather than lost.
func toZapFields(fields []any) []zap.Field {
	zapFields := make([]zap.Field, 0, (len(fields)+1)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprint(fields[i])
		}
		zapFields = append(zapFields, zap.Any(key, fields[i+1]))
	}
	if len(fields)%2 != 0 {
		zapFields = append(zapFields, zap.Any("dangling", fields[len(fields)-1]))
	}
	return zapFields
}
