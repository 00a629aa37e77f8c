/*
Package logging configures the diagnostic logger.

Log lines always go to stderr.  When a log file is configured they are
also written to a size-rotated file managed by lumberjack.  Only
diagnostic lines are logged this way; relayed traffic and its dumps go
to the observability stream on stdout and are never persisted.
*/
package logging

import (
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"tcptap/util"
)

// Config holds logging configuration.
type Config struct {
	// Verbosity is the util.Logger level (0 quiet … 3 debug).
	Verbosity int
	// File is the log file path.  If empty, file logging is disabled.
	File string
	// Stderr overrides the terminal sink (default os.Stderr).
	Stderr io.Writer
}

// Setup creates a logger that writes to stderr and optionally to a
// rotated log file.  Returns the logger and a cleanup function that
// closes the file.
func Setup(cfg Config) (logger *util.Logger, cleanup func()) {
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	logger = util.NewLogger(cfg.Verbosity)
	logger.SetOutput(stderr)

	if cfg.File == "" {
		return logger, func() {}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o750); err != nil {
		logger.Warn("log file disabled: %v", err)
		return logger, func() {}
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    10, // MB per file
		MaxBackups: 3,
		MaxAge:     7, // days
		Compress:   true,
	}

	logger.SetOutput(io.MultiWriter(stderr, lj))
	logger.SetTimestamps(true)

	return logger, func() { lj.Close() }
}
