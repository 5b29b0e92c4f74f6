// Package logger provides structured logging for wrangle.
// It wraps log/slog with a package-level logger so every package logs with
// the same handler and field names (snake_case).
//
// Logs go to stderr by default; stdout is reserved for table output.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

var (
	mu     sync.RWMutex
	out    io.Writer = os.Stderr
	level            = new(slog.LevelVar)
	logger           = newLogger(os.Stderr)
)

func init() {
	level.Set(slog.LevelWarn)
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// L returns the current logger.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLevel configures the logging level.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	logger = newLogger(w)
}

// Output returns the writer logs currently go to.
func Output() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return out
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// WithPipeline returns a logger with pipeline context.
func WithPipeline(name string, stages int) *slog.Logger {
	return L().With(slog.String("pipeline", name), slog.Int("stages", stages))
}

// StageEnd logs the completion of one stage.
func StageEnd(l *slog.Logger, index int, stage string, rowsIn, rowsOut int, d time.Duration) {
	l.Debug("stage completed",
		slog.Int("index", index),
		slog.String("stage", stage),
		slog.Int("rows_in", rowsIn),
		slog.Int("rows_out", rowsOut),
		slog.Duration("duration", d),
	)
}

// StageError logs a failing stage at debug level.
func StageError(l *slog.Logger, index int, stage string, err error) {
	l.Debug("stage failed",
		slog.Int("index", index),
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
}
