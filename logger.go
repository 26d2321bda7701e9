// Package retrieval provides a high-level logging interface for the
// hybrid retrieval core, built on top of the index package's logging
// system. It offers:
//   - Multiple severity levels (Debug, Info, Warn, Error)
//   - Structured logging with key-value pairs
//   - Global log level control
//   - Consistent logging across the package
package retrieval

import (
	"github.com/corvid-labs/hybridqa/index"
)

// LogLevel represents the severity of a log message.
//
// Available levels (from least to most severe):
//   - LogLevelDebug: Detailed information for debugging
//   - LogLevelInfo:  General operational messages
//   - LogLevelWarn:  Warning conditions
//   - LogLevelError: Error conditions
//   - LogLevelOff:   Disable all logging
type LogLevel = index.LogLevel

// Log levels define the available logging severities. Higher levels
// include messages from all lower levels.
const (
	LogLevelOff   = index.LogLevelOff
	LogLevelError = index.LogLevelError
	LogLevelWarn  = index.LogLevelWarn
	LogLevelInfo  = index.LogLevelInfo
	LogLevelDebug = index.LogLevelDebug
)

// Logger interface defines the logging operations available. It supports
// structured logging with key-value pairs for better log aggregation.
type Logger = index.Logger

// SetLogLevel sets the global log level for the package. Messages below
// this level will not be logged.
func SetLogLevel(level LogLevel) {
	index.SetGlobalLogLevel(level)
}

// Debug logs a message at debug level with optional key-value pairs.
func Debug(msg string, keysAndValues ...interface{}) {
	index.GlobalLogger.Debug(msg, keysAndValues...)
}

// Info logs a message at info level with optional key-value pairs.
func Info(msg string, keysAndValues ...interface{}) {
	index.GlobalLogger.Info(msg, keysAndValues...)
}

// Warn logs a message at warning level with optional key-value pairs.
func Warn(msg string, keysAndValues ...interface{}) {
	index.GlobalLogger.Warn(msg, keysAndValues...)
}

// Error logs a message at error level with optional key-value pairs.
func Error(msg string, keysAndValues ...interface{}) {
	index.GlobalLogger.Error(msg, keysAndValues...)
}
