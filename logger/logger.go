// Package logger wraps a zap SugaredLogger with key/value helpers.
package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Logger is the structured logger shared by the server, store and CLI.
// Every method takes a message followed by alternating keys and values.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a logger. "prod" and "production" select JSON output at info
// level; anything else gives the human-readable development format.
func New(mode string) (*Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if m := strings.ToLower(mode); m == "prod" || m == "production" {
		cfg = zap.NewProductionConfig()
	}
	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zl.Sugar()}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, kv ...any) {
	l.SugaredLogger.Debugw(msg, kv...)
}

func (l *Logger) Info(msg string, kv ...any) {
	l.SugaredLogger.Infow(msg, kv...)
}

func (l *Logger) Warn(msg string, kv ...any) {
	l.SugaredLogger.Warnw(msg, kv...)
}

func (l *Logger) Error(msg string, kv ...any) {
	l.SugaredLogger.Errorw(msg, kv...)
}

// Fatal logs at fatal level and exits the process.
func (l *Logger) Fatal(msg string, kv ...any) {
	l.SugaredLogger.Fatalw(msg, kv...)
}

// With returns a child logger that adds kv to every entry.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(kv...)}
}
