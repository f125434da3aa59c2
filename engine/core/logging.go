package core

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

type LogLevel = log.Level

const (
	DebugLevel LogLevel = log.DebugLevel
	InfoLevel  LogLevel = log.InfoLevel
	WarnLevel  LogLevel = log.WarnLevel
	ErrorLevel LogLevel = log.ErrorLevel
)

// Logger is the logging capability handed to every subsystem. Nothing in the
// engine reaches for a process-wide logger; callers inject one.
type Logger interface {
	Log(level LogLevel, msg string, keyvals ...interface{})
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
	// With returns a child logger that prepends keyvals to every entry.
	With(keyvals ...interface{}) Logger
}

type LoggerOptions struct {
	Level        LogLevel
	Prefix       string
	ReportCaller bool
	// JSON switches the output to one JSON object per line.
	JSON bool
}

type logger struct {
	l *log.Logger
}

func NewLogger(w io.Writer, opts LoggerOptions) Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportCaller:    opts.ReportCaller,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          opts.Prefix,
		Level:           opts.Level,
	})
	if opts.JSON {
		l.SetFormatter(log.JSONFormatter)
	}
	return &logger{l: l}
}

// NopLogger discards everything. Useful as a default and in tests.
func NopLogger() Logger {
	return NewLogger(io.Discard, LoggerOptions{Level: ErrorLevel})
}

func ParseLogLevel(level string) (LogLevel, error) {
	return log.ParseLevel(level)
}

func (lg *logger) Log(level LogLevel, msg string, keyvals ...interface{}) {
	lg.l.Helper()
	lg.l.Log(level, msg, keyvals...)
}

func (lg *logger) Debug(msg string, keyvals ...interface{}) {
	lg.l.Helper()
	lg.l.Debug(msg, keyvals...)
}

func (lg *logger) Info(msg string, keyvals ...interface{}) {
	lg.l.Helper()
	lg.l.Info(msg, keyvals...)
}

func (lg *logger) Warn(msg string, keyvals ...interface{}) {
	lg.l.Helper()
	lg.l.Warn(msg, keyvals...)
}

func (lg *logger) Error(msg string, keyvals ...interface{}) {
	lg.l.Helper()
	lg.l.Error(msg, keyvals...)
}

func (lg *logger) With(keyvals ...interface{}) Logger {
	return &logger{l: lg.l.With(keyvals...)}
}
