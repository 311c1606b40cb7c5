package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trader/backend/config"
)

// Fields is an alias so callers do not need to import logrus for structured logs.
type Fields = logrus.Fields

var (
	std     = logrus.New()
	logFile *os.File
)

func init() {
	std.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	std.SetOutput(os.Stdout)
	std.SetLevel(logrus.InfoLevel)
}

// Init initializes the logger with the specified configuration
func Init(cfg config.LoggingConfig) {
	SetLevel(cfg.Level)

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	if cfg.File == "" {
		std.SetOutput(os.Stdout)
		return
	}

	if dir := filepath.Dir(cfg.File); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			std.WithError(err).Warn("failed to create log directory")
		}
	}

	f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		std.WithError(err).Warn("failed to open log file")
		std.SetOutput(os.Stdout)
		return
	}
	logFile = f
	std.SetOutput(io.MultiWriter(os.Stdout, f))
}

// SetLevel changes the minimum level. Unknown names select info.
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		std.SetLevel(logrus.DebugLevel)
	case "warning", "warn":
		std.SetLevel(logrus.WarnLevel)
	case "error":
		std.SetLevel(logrus.ErrorLevel)
	case "fatal":
		std.SetLevel(logrus.FatalLevel)
	default:
		std.SetLevel(logrus.InfoLevel)
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields Fields) *logrus.Entry {
	return std.WithFields(fields)
}

// WithError returns an entry carrying err.
func WithError(err error) *logrus.Entry {
	return std.WithError(err)
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	std.Debugf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	std.Infof(format, args...)
}

// Warning logs a warning message
func Warning(format string, args ...interface{}) {
	std.Warnf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	std.Errorf(format, args...)
}

// Fatal logs a fatal message and exits the program
func Fatal(format string, args ...interface{}) {
	std.Fatalf(format, args...)
}
