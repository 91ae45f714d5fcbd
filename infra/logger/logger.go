package logger

import corelogger "github.com/anhkiet307/swapstation/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards every entry.
type NopLogger = corelogger.NopLogger

// New returns a Logger tagged with the given component. The output format is
// chosen from the APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}
