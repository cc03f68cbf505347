// Package logging wires the standard logger to stderr and, when a log file
// is configured, to a rotating file.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Zachkp/folio/internal/config"
)

// Setup points the standard logger at the configured sinks and returns the
// writer so other components (gin, prefixed loggers) can share it. The
// returned closer flushes and closes the rotating file.
func Setup(cfg config.LogConfig) (io.Writer, io.Closer) {
	if cfg.File == "" {
		log.SetOutput(os.Stderr)
		return os.Stderr, nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	w := io.MultiWriter(os.Stderr, file)
	log.SetOutput(w)
	return w, file
}

// New returns a logger with a component prefix, e.g. "[live] ".
func New(w io.Writer, component string) *log.Logger {
	return log.New(w, "["+component+"] ", log.LstdFlags)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
