package logger

import (
	"log/slog"

	"staking_tracker/internal/app/port"
)

// slogAdapter реализует port.Logger поверх *slog.Logger.
// Без явного логгера используется глобальный.
type slogAdapter struct {
	l *slog.Logger
}

// NewSlogAdapter returns a port.Logger writing to the global logger.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

// NewAdapter wraps a specific logger, typically one carrying component attributes.
func NewAdapter(l *slog.Logger) port.Logger {
	return &slogAdapter{l: l}
}

// Nop returns a logger that discards everything. Handy in tests.
func Nop() port.Logger {
	return &slogAdapter{l: slog.New(slog.DiscardHandler)}
}

func (a *slogAdapter) logger() *slog.Logger {
	if a.l != nil {
		return a.l
	}
	return L()
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger().Info(msg, args...) }
func (a *slogAdapter) Debug(msg string, args ...any) { a.logger().Debug(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger().Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger().Error(msg, args...) }

func (a *slogAdapter) With(args ...any) port.Logger {
	return &slogAdapter{l: a.logger().With(args...)}
}
