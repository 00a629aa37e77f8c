// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// Logger writes levelled messages to stderr with optional timestamps,
// level prefixes and a scope prefix (e.g. a session ID).
//
// Loggers derived with [Logger.With] share the parent's output, lock
// and settings, so lines from concurrent sessions never interleave.
type Logger struct {
	shared *loggerCore
	prefix string
}

type loggerCore struct {
	mu         sync.Mutex
	level      LogLevel
	output     io.Writer
	timestamps bool // if true, prepend a wall-clock timestamp
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	return &Logger{shared: &loggerCore{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		timestamps: verbosity >= 3, // auto-enable timestamps in debug mode
	}}
}

// With returns a child logger whose lines carry prefix in brackets.
// Prefixes nest: l.With("a").With("b") prints "[a] [b] msg".
func (l *Logger) With(prefix string) *Logger {
	p := "[" + prefix + "] "
	return &Logger{shared: l.shared, prefix: l.prefix + p}
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) {
	l.shared.mu.Lock()
	l.shared.timestamps = on
	l.shared.mu.Unlock()
}

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.shared.mu.Lock()
	l.shared.output = w
	l.shared.mu.Unlock()
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.shared.level }

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	if l.shared.level >= LogNormal {
		l.write("INF", format, args...)
	}
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.shared.level >= LogNormal {
		l.write("WRN", format, args...)
	}
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	if l.shared.level >= LogVerbose {
		l.write("VRB", format, args...)
	}
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.shared.level >= LogDebug {
		l.write("DBG", format, args...)
	}
}

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	l.write("ERR", format, args...)
}

func (l *Logger) write(level, format string, args ...interface{}) {
	c := l.shared
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := l.prefix + fmt.Sprintf(format, args...)
	if c.timestamps {
		ts := time.Now().Format("15:04:05.000")
		fmt.Fprintf(c.output, "%s [%s] %s\n", ts, level, msg)
	} else {
		fmt.Fprintf(c.output, "[%s] %s\n", level, msg)
	}
}
