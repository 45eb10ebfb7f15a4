// Package logging provides structured logging for testgenius with consistent
// formatting and key-value context. It wraps log/slog so components log
// through one configurable handler instead of scattered log.Printf calls.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu       sync.RWMutex
	level    = new(slog.LevelVar)
	instance = newLogger(os.Stderr)
)

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func init() {
	// Default to warn so library callers stay quiet unless asked.
	level.Set(slog.LevelWarn)
}

// SetLevel sets the minimum log level for all loggers.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// SetVerbose lowers the minimum level to debug.
func SetVerbose() {
	level.Set(slog.LevelDebug)
}

// SetOutput replaces the destination writer. Used by tests to capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	instance = newLogger(w)
}

// With returns a logger carrying additional context attributes.
func With(args ...any) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return instance.With(args...)
}

func logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	logger().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	logger().Info(msg, args...)
}

// Warn logs at warn level (recoverable errors).
func Warn(msg string, args ...any) {
	logger().Warn(msg, args...)
}

// Error logs at error level (significant errors).
func Error(msg string, args ...any) {
	logger().Error(msg, args...)
}
