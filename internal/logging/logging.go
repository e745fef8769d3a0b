// Package logging provides the structured logger shared by every component of
// the billing service.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fields carries structured key/value context for a log entry.
type Fields map[string]interface{}

var base = newBase(os.Stdout)

func newBase(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel adjusts the process-wide log level. Unknown levels are ignored.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		base.WithField("level", level).Warn("Unknown log level, keeping current")
		return
	}
	base.SetLevel(lvl)
}

// SetOutput redirects all loggers. Used by tests.
func SetOutput(out io.Writer) {
	base.SetOutput(out)
}

// LoggerV2 is a component-scoped structured logger.
type LoggerV2 struct {
	entry *logrus.Entry
}

// NewLoggerV2 creates a logger tagged with the given component name.
func NewLoggerV2(service string) *LoggerV2 {
	return &LoggerV2{entry: base.WithField("service", service)}
}

func (l *LoggerV2) with(fields []Fields) *logrus.Entry {
	e := l.entry
	for _, f := range fields {
		e = e.WithFields(logrus.Fields(f))
	}
	return e
}

func (l *LoggerV2) Debug(msg string, fields ...Fields) {
	l.with(fields).Debug(msg)
}

func (l *LoggerV2) Info(msg string, fields ...Fields) {
	l.with(fields).Info(msg)
}

func (l *LoggerV2) Warn(msg string, fields ...Fields) {
	l.with(fields).Warn(msg)
}

func (l *LoggerV2) Error(msg string, fields ...Fields) {
	l.with(fields).Error(msg)
}

// Fatal logs and exits the process.
func (l *LoggerV2) Fatal(msg string, fields ...Fields) {
	l.with(fields).Fatal(msg)
}

// Info logs on the process-wide logger.
func Info(msg string, fields ...Fields) {
	e := logrus.NewEntry(base)
	for _, f := range fields {
		e = e.WithFields(logrus.Fields(f))
	}
	e.Info(msg)
}

// Infof logs a formatted message on the process-wide logger.
func Infof(format string, args ...interface{}) {
	base.Infof(format, args...)
}
