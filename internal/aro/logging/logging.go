// Package logging provides the structured LoggerService the runtime uses
// for ambient operational logging (missed quiescence timeouts, handler
// and Application-End failures), wrapping sirupsen/logrus the same way the pack's
// service-platform example wraps it for its own service logging.
package logging

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service is the LoggerService the engine and built-in actions log
// through; the engine registers it in the runtime context's service
// registry under the key "logger".
type Service interface {
	WithExecution(executionID string) Entry
	WithFields(fields map[string]any) Entry
}

// Entry is a single structured log line in progress.
type Entry interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	WithField(key string, value any) Entry
}

// Logger is the default Service implementation, one per Engine instance.
type Logger struct {
	base    *logrus.Logger
	feature string
}

// New builds a Logger at the given level ("debug"/"info"/"warn"/"error")
// and format ("json"/"text"), defaulting to info on an unrecognized level
// and to json for any format other than "text".
func New(feature, level, format string) *Logger {
	base := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)

	if format == "text" {
		base.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}
	base.SetOutput(os.Stdout)

	return &Logger{base: base, feature: feature}
}

// NewExecutionID mints a fresh uuid for an execution's trace id.
func NewExecutionID() string {
	return uuid.New().String()
}

func (l *Logger) WithExecution(executionID string) Entry {
	return entry{l.base.WithFields(logrus.Fields{"feature": l.feature, "execution_id": executionID})}
}

func (l *Logger) WithFields(fields map[string]any) Entry {
	f := make(logrus.Fields, len(fields)+1)
	for k, v := range fields {
		f[k] = v
	}
	f["feature"] = l.feature
	return entry{l.base.WithFields(f)}
}

type entry struct {
	e *logrus.Entry
}

func (en entry) Debug(msg string) { en.e.Debug(msg) }
func (en entry) Info(msg string)  { en.e.Info(msg) }
func (en entry) Warn(msg string)  { en.e.Warn(msg) }
func (en entry) Error(msg string) { en.e.Error(msg) }

func (en entry) WithField(key string, value any) Entry {
	return entry{en.e.WithField(key, value)}
}
