// Package logging provides the timestamped, leveled logger shared by all
// land-scout components.
package logging

import (
	"fmt"
	"log"
	"os"
	"time"
)

// Logger writes leveled, timestamped lines to stdout/stderr.
// Debug output is suppressed unless the logger is created verbose.
type Logger struct {
	info    *log.Logger
	warn    *log.Logger
	err     *log.Logger
	debug   *log.Logger
	verbose bool
}

// New creates a Logger. When verbose is false, Debug calls are dropped.
func New(verbose bool) *Logger {
	return &Logger{
		info:    log.New(os.Stdout, "", 0),
		warn:    log.New(os.Stdout, "", 0),
		err:     log.New(os.Stderr, "", 0),
		debug:   log.New(os.Stdout, "", 0),
		verbose: verbose,
	}
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	l.info.Printf(fmt.Sprintf("[%s] INFO  %s", l.timestamp(), format), args...)
}

// Warn logs a recoverable problem.
func (l *Logger) Warn(format string, args ...any) {
	l.warn.Printf(fmt.Sprintf("[%s] WARN  %s", l.timestamp(), format), args...)
}

// Error logs a failure.
func (l *Logger) Error(format string, args ...any) {
	l.err.Printf(fmt.Sprintf("[%s] ERROR %s", l.timestamp(), format), args...)
}

// Debug logs diagnostic detail; no-op unless verbose.
func (l *Logger) Debug(format string, args ...any) {
	if !l.verbose {
		return
	}
	l.debug.Printf(fmt.Sprintf("[%s] DEBUG %s", l.timestamp(), format), args...)
}
