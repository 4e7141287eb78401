// Package logger provides a shared logging facade for all poof binaries.
package logger

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Ctx is the logging context to attach to a message.
type Ctx logrus.Fields

// Logger is the main logging interface.
type Logger interface {
	Panic(msg string, ctx ...Ctx)
	Fatal(msg string, ctx ...Ctx)
	Error(msg string, ctx ...Ctx)
	Warn(msg string, ctx ...Ctx)
	Info(msg string, ctx ...Ctx)
	Debug(msg string, ctx ...Ctx)
	Trace(msg string, ctx ...Ctx)
	AddContext(ctx Ctx) Logger
}

// Log contains the logger used by all the logging functions.
var Log Logger

type logWrapper struct {
	logger *logrus.Entry
}

func init() {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	Log = &logWrapper{logrus.NewEntry(logger)}
}

// InitLogger initializes the global logger level from the verbose and debug flags.
func InitLogger(verbose bool, debug bool) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	switch {
	case debug:
		logger.SetLevel(logrus.TraceLevel)
	case verbose:
		logger.SetLevel(logrus.InfoLevel)
	default:
		logger.SetLevel(logrus.WarnLevel)
	}

	Log = &logWrapper{logrus.NewEntry(logger)}
}

func (lw *logWrapper) Panic(msg string, ctx ...Ctx) {
	lw.newEntry(ctx).Panic(msg)
}

func (lw *logWrapper) Fatal(msg string, ctx ...Ctx) {
	lw.newEntry(ctx).Fatal(msg)
}

func (lw *logWrapper) Error(msg string, ctx ...Ctx) {
	lw.newEntry(ctx).Error(msg)
}

func (lw *logWrapper) Warn(msg string, ctx ...Ctx) {
	lw.newEntry(ctx).Warn(msg)
}

func (lw *logWrapper) Info(msg string, ctx ...Ctx) {
	lw.newEntry(ctx).Info(msg)
}

func (lw *logWrapper) Debug(msg string, ctx ...Ctx) {
	lw.newEntry(ctx).Debug(msg)
}

func (lw *logWrapper) Trace(msg string, ctx ...Ctx) {
	lw.newEntry(ctx).Trace(msg)
}

// AddContext returns a sub-logger with the given context attached to every message.
func (lw *logWrapper) AddContext(ctx Ctx) Logger {
	return &logWrapper{lw.logger.WithFields(logrus.Fields(ctx))}
}

func (lw *logWrapper) newEntry(ctx []Ctx) *logrus.Entry {
	entry := lw.logger
	for _, c := range ctx {
		entry = entry.WithFields(logrus.Fields(c))
	}

	return entry
}

// Panic logs a panic level message and panics.
func Panic(msg string, ctx ...Ctx) {
	Log.Panic(msg, ctx...)
}

// Fatal logs a fatal level message and exits.
func Fatal(msg string, ctx ...Ctx) {
	Log.Fatal(msg, ctx...)
}

// Error logs an error level message.
func Error(msg string, ctx ...Ctx) {
	Log.Error(msg, ctx...)
}

// Warn logs a warning level message.
func Warn(msg string, ctx ...Ctx) {
	Log.Warn(msg, ctx...)
}

// Info logs an info level message.
func Info(msg string, ctx ...Ctx) {
	Log.Info(msg, ctx...)
}

// Debug logs a debug level message.
func Debug(msg string, ctx ...Ctx) {
	Log.Debug(msg, ctx...)
}

// AddContext returns a sub-logger of the global logger with the given context.
func AddContext(ctx Ctx) Logger {
	return Log.AddContext(ctx)
}

// Errorf logs a formatted error level message.
func Errorf(format string, args ...any) {
	Log.Error(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted warning level message.
func Warnf(format string, args ...any) {
	Log.Warn(fmt.Sprintf(format, args...))
}

// Infof logs a formatted info level message.
func Infof(format string, args ...any) {
	Log.Info(fmt.Sprintf(format, args...))
}

// Debugf logs a formatted debug level message.
func Debugf(format string, args ...any) {
	Log.Debug(fmt.Sprintf(format, args...))
}
