package logger

import "github.com/user/cliprec/pkg/ports"

// NoopLogger is a logger that discards all messages.
// Used in tests and for quiet mode.
type NoopLogger struct{}

// NewNoop creates a new no-op logger.
func NewNoop() *NoopLogger {
	return &NoopLogger{}
}

func (l *NoopLogger) Debug(msg string, args ...any) {}
func (l *NoopLogger) Info(msg string, args ...any)  {}
func (l *NoopLogger) Warn(msg string, args ...any)  {}
func (l *NoopLogger) Error(msg string, args ...any) {}

// WithComponent returns the same no-op logger.
func (l *NoopLogger) WithComponent(component string) ports.Logger {
	return l
}

// New returns a console logger for level, or a no-op logger when level is quiet.
func New(level ports.LogLevel) ports.Logger {
	if level >= ports.LevelQuiet {
		return NewNoop()
	}
	return NewConsole(level)
}
