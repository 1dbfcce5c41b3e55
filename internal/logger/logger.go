package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Log levels
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	slogLevels = map[int]slog.Level{
		LevelDebug: slog.LevelDebug,
		LevelInfo:  slog.LevelInfo,
		LevelWarn:  slog.LevelWarn,
		LevelError: slog.LevelError,
	}

	level   = new(slog.LevelVar)
	backend atomic.Pointer[slog.Logger]
)

// Logger tags every record with the component that produced it
type Logger struct {
	component string
}

func init() {
	// Default to INFO in production, DEBUG in development
	if IsDevelopment() {
		level.Set(slog.LevelDebug)
	}
	SetOutput(os.Stderr)
}

// New creates a new logger for a specific component
func New(component string) *Logger {
	return &Logger{component: component}
}

// SetOutput redirects all loggers to w
func SetOutput(w io.Writer) {
	backend.Store(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// SetMinLevel allows changing the minimum log level at runtime
func SetMinLevel(l int) {
	if sl, ok := slogLevels[l]; ok {
		level.Set(sl)
	}
}

// ParseLevel maps a config value such as "warn" to a level constant.
// Unknown values map to LevelInfo.
func ParseLevel(s string) int {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) logf(lvl int, format string, args ...interface{}) {
	sl := slogLevels[lvl]
	b := backend.Load()
	if !b.Enabled(context.Background(), sl) {
		return
	}
	b.Log(context.Background(), sl, fmt.Sprintf(format, args...), slog.String("component", l.component))
}

// Debug logs debug information
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logf(LevelDebug, format, args...)
}

// Info logs information messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.logf(LevelInfo, format, args...)
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf(LevelWarn, format, args...)
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.logf(LevelError, format, args...)
}

// GetAppEnv returns the current application environment
func GetAppEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "development"
	}
	return env
}

// IsDevelopment returns true if the current environment is development
func IsDevelopment() bool {
	return GetAppEnv() == "development"
}
