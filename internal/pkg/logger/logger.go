package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

var globalLogger *slog.Logger // один глобальный логгер на процесс

// ParseLevel maps a config string to a slog level. Unknown strings yield INFO and false.
func ParseLevel(levelStr string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO", "":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// InitSlog initializes the global slog logger with a JSON handler on stdout.
func InitSlog(levelStr string) {
	level, ok := ParseLevel(levelStr)
	if !ok {
		// globalLogger еще не инициализирован
		slog.Warn("Invalid log level string, defaulting to INFO", "input", levelStr)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	SetLogger(slog.New(handler))
}

// SetLogger installs an already configured logger, e.g. one backed by zap.
func SetLogger(l *slog.Logger) {
	globalLogger = l
	slog.SetDefault(l)
}

// L returns the global logger.
func L() *slog.Logger {
	ensureInitialized()
	return globalLogger
}

func ensureInitialized() {
	if globalLogger == nil {
		InitSlog("INFO")
	}
}

func log(level slog.Level, msg string, args ...any) {
	ensureInitialized()
	ctx := context.Background()
	if globalLogger.Enabled(ctx, level) {
		globalLogger.Log(ctx, level, msg, args...)
	}
}

// Debug logs a message at DebugLevel.
func Debug(msg string, args ...any) { log(slog.LevelDebug, msg, args...) }

// Info logs a message at InfoLevel.
func Info(msg string, args ...any) { log(slog.LevelInfo, msg, args...) }

// Warn logs a message at WarnLevel.
func Warn(msg string, args ...any) { log(slog.LevelWarn, msg, args...) }

// Error logs a message at ErrorLevel.
func Error(msg string, args ...any) { log(slog.LevelError, msg, args...) }

// Fatal logs a message at ErrorLevel then exits.
func Fatal(msg string, args ...any) {
	ensureInitialized()
	// пишем всегда, независимо от уровня
	globalLogger.Error(msg, args...)
	os.Exit(1)
}
