package internal

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// charmLevel maps a LogLevel onto the backend's level scale
func (l LogLevel) charmLevel() log.Level {
	switch l {
	case LogLevelError:
		return log.ErrorLevel
	case LogLevelWarn:
		return log.WarnLevel
	case LogLevelDebug:
		return log.DebugLevel
	default:
		return log.InfoLevel
	}
}

// SecureLogger provides logging with credential redaction on top of charmbracelet/log
type SecureLogger struct {
	logger    *log.Logger
	level     LogLevel
	quiet     bool
	redactors []Redactor
}

// Redactor defines an interface for redacting sensitive information
type Redactor interface {
	Redact(input string) string
}

// CookieRedactor redacts session cookies and cookie headers
type CookieRedactor struct{}

var cookiePattern = regexp.MustCompile(`(?i)(PHPSESSID=|Cookie:\s*|Set-Cookie:\s*)[^;\s]+`)

func (r *CookieRedactor) Redact(input string) string {
	return cookiePattern.ReplaceAllString(input, "${1}[REDACTED]")
}

// FormRedactor redacts credential-bearing form fields and query parameters
type FormRedactor struct{}

var formPattern = regexp.MustCompile(`(?i)(password=|userhash=)[^&\s]+`)

func (r *FormRedactor) Redact(input string) string {
	return formPattern.ReplaceAllString(input, "${1}[REDACTED]")
}

// NewSecureLogger creates a new secure logger
func NewSecureLogger(output io.Writer, level LogLevel, debug, quiet bool) *SecureLogger {
	if debug {
		level = LogLevelDebug
	}
	if quiet {
		level = LogLevelError
	}

	logger := log.NewWithOptions(output, log.Options{
		ReportTimestamp: true,
		ReportCaller:    debug,
		CallerOffset:    2,
		Level:           level.charmLevel(),
	})

	return &SecureLogger{
		logger: logger,
		level:  level,
		quiet:  quiet,
		redactors: []Redactor{
			&CookieRedactor{},
			&FormRedactor{},
		},
	}
}

// NewDefaultLogger creates a logger with default settings
func NewDefaultLogger(debug, quiet bool) *SecureLogger {
	return NewSecureLogger(os.Stderr, LogLevelInfo, debug, quiet)
}

// redactSensitiveData applies all redactors to the input string
func (sl *SecureLogger) redactSensitiveData(input string) string {
	result := input
	for _, redactor := range sl.redactors {
		result = redactor.Redact(result)
	}
	return result
}

// shouldLog determines if a message should be logged based on level
func (sl *SecureLogger) shouldLog(level LogLevel) bool {
	if sl.quiet && level > LogLevelError {
		return false
	}
	return level <= sl.level
}

func (sl *SecureLogger) emit(level LogLevel, format string, args ...interface{}) {
	if !sl.shouldLog(level) {
		return
	}
	message := sl.redactSensitiveData(fmt.Sprintf(format, args...))
	sl.logger.Log(level.charmLevel(), message)
}

// Error logs an error message
func (sl *SecureLogger) Error(format string, args ...interface{}) {
	sl.emit(LogLevelError, format, args...)
}

// Warn logs a warning message
func (sl *SecureLogger) Warn(format string, args ...interface{}) {
	sl.emit(LogLevelWarn, format, args...)
}

// Info logs an info message
func (sl *SecureLogger) Info(format string, args ...interface{}) {
	sl.emit(LogLevelInfo, format, args...)
}

// Debug logs a debug message
func (sl *SecureLogger) Debug(format string, args ...interface{}) {
	sl.emit(LogLevelDebug, format, args...)
}

// LogHTTPRequest logs an HTTP request with sensitive data redacted
func (sl *SecureLogger) LogHTTPRequest(req *http.Request) {
	if !sl.shouldLog(LogLevelDebug) {
		return
	}

	sl.Debug("HTTP Request: %s %s Headers: %v", req.Method, req.URL.String(), sl.sanitizeHeaders(req.Header))
}

// LogHTTPResponse logs an HTTP response with sensitive data redacted
func (sl *SecureLogger) LogHTTPResponse(resp *http.Response) {
	if !sl.shouldLog(LogLevelDebug) {
		return
	}

	sl.Debug("HTTP Response: %s Headers: %v", resp.Status, sl.sanitizeHeaders(resp.Header))
}

func (sl *SecureLogger) sanitizeHeaders(header http.Header) map[string]string {
	sanitized := make(map[string]string, len(header))
	for name, values := range header {
		if sl.isSensitiveHeader(name) {
			sanitized[name] = "[REDACTED]"
		} else {
			sanitized[name] = strings.Join(values, ", ")
		}
	}
	return sanitized
}

// isSensitiveHeader checks if a header contains sensitive information
func (sl *SecureLogger) isSensitiveHeader(name string) bool {
	sensitiveHeaders := []string{
		"authorization",
		"cookie",
		"set-cookie",
	}

	lowerName := strings.ToLower(name)
	for _, sensitive := range sensitiveHeaders {
		if strings.Contains(lowerName, sensitive) {
			return true
		}
	}
	return false
}

// SetLevel sets the logging level
func (sl *SecureLogger) SetLevel(level LogLevel) {
	sl.level = level
	sl.logger.SetLevel(level.charmLevel())
}
