package internal

import (
	"io"
	"os"
	"strings"
	"sync"
)

var (
	// Global logger instance
	globalLogger *SecureLogger
	logFileOut   io.Closer
	loggerMutex  sync.RWMutex
)

// InitLogger initializes the global logger with the given configuration
func InitLogger(config *Config) error {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	level := parseLogLevel(config.LogLevel)

	var output io.Writer = os.Stderr
	var closer io.Closer
	if config.LogFile != "" {
		file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return NewValidationError("log_file", "failed to open log file").
				WithSuggestion("Check file permissions and path validity").
				WithContext("file", config.LogFile).
				WithContext("error", err.Error())
		}
		output = file
		closer = file
	}

	closeLogFile()
	globalLogger = NewSecureLogger(output, level, config.EnableDebug, config.QuietMode)
	logFileOut = closer

	return nil
}

// CloseLogger closes the log file, if any, and reverts to the default stderr logger
func CloseLogger() error {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	err := closeLogFile()
	globalLogger = nil
	return err
}

// closeLogFile must be called with loggerMutex held
func closeLogFile() error {
	if logFileOut == nil {
		return nil
	}
	err := logFileOut.Close()
	logFileOut = nil
	return err
}

// GetLogger returns the global logger instance
func GetLogger() *SecureLogger {
	loggerMutex.RLock()
	logger := globalLogger
	loggerMutex.RUnlock()
	if logger != nil {
		return logger
	}

	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if globalLogger == nil {
		globalLogger = NewDefaultLogger(false, false)
	}
	return globalLogger
}

// parseLogLevel converts string log level to LogLevel enum
func parseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Convenience functions for global logging

// LogError logs an error message using the global logger
func LogError(format string, args ...interface{}) {
	GetLogger().Error(format, args...)
}

// LogWarn logs a warning message using the global logger
func LogWarn(format string, args ...interface{}) {
	GetLogger().Warn(format, args...)
}

// LogInfo logs an info message using the global logger
func LogInfo(format string, args ...interface{}) {
	GetLogger().Info(format, args...)
}

// LogDebug logs a debug message using the global logger
func LogDebug(format string, args ...interface{}) {
	GetLogger().Debug(format, args...)
}

// LogCatboxError logs a CatboxError with a level matching its severity
func LogCatboxError(err *CatboxError) {
	logger := GetLogger()

	switch err.Severity {
	case SeverityCritical:
		logger.Error("CRITICAL: %s", err.DetailedError())
	case SeverityWarning:
		logger.Warn("%s", err.DetailedError())
	case SeverityInfo:
		logger.Info("%s", err.DetailedError())
	default:
		logger.Error("%s", err.DetailedError())
	}
}

// LogValidationError logs a ValidationError
func LogValidationError(err *ValidationError) {
	GetLogger().Error("Validation Error: %s", err.DetailedError())
}
