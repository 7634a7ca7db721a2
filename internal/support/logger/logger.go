// Package logger provides the process-wide logging facade for forecastpipe.
// It keeps a small level-based API on top of a logrus logger so that every
// package logs through one configured sink.
package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fields is an alias for logrus.Fields so callers do not import logrus directly.
type Fields = logrus.Fields

// std is the shared logger. Its level defaults to INFO.
var std = newStd()

func newStd() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// SetLogLevel sets the global log level.
// Valid values are "DEBUG", "INFO", "WARN", "ERROR", "FATAL" (case-insensitive).
// Unknown values fall back to INFO with a warning.
func SetLogLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG", "TRACE":
		std.SetLevel(logrus.DebugLevel)
	case "INFO", "":
		std.SetLevel(logrus.InfoLevel)
	case "WARN", "WARNING":
		std.SetLevel(logrus.WarnLevel)
	case "ERROR":
		std.SetLevel(logrus.ErrorLevel)
	case "FATAL":
		std.SetLevel(logrus.FatalLevel)
	default:
		std.SetLevel(logrus.InfoLevel)
		std.Warnf("Unknown log level '%s' specified. Defaulting to INFO level.", level)
	}
}

// SetFormat switches between "text" and "json" output.
func SetFormat(format string) error {
	switch strings.ToLower(format) {
	case "", "text":
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		std.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unsupported log format: %s", format)
	}
	return nil
}

// SetOutput redirects log output. Mostly used by tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// IsDebugEnabled reports whether DEBUG messages are currently emitted.
func IsDebugEnabled() bool {
	return std.IsLevelEnabled(logrus.DebugLevel)
}

// WithFields returns an entry carrying structured context such as run_id or object name.
func WithFields(fields Fields) *logrus.Entry {
	return std.WithFields(fields)
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	std.Debugf(format, v...)
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	std.Infof(format, v...)
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	std.Warnf(format, v...)
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	std.Errorf(format, v...)
}

// Fatalf outputs a FATAL level log message and terminates the process with exit code 1.
func Fatalf(format string, v ...interface{}) {
	std.Fatalf(format, v...)
}
