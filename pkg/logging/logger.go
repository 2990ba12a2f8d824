// =============================================================================
// pkg/logging/logger.go - Prefixed Stream Logging
// =============================================================================
//
// This package provides the logger used by the benchmark tools. It writes:
//   - Informational messages to standard output, each line prefixed "I "
//   - Error messages to standard error, each line prefixed "E "
//
// The prefixes let a caller split the two classes of output even when both
// streams are redirected into one file. Both streams can additionally be
// mirrored into files for unattended runs.
//
// Workers log through the same Logger instance; all writes are serialized by
// a mutex, so interleaved lines never tear.
//
// =============================================================================

package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// InfoPrefix marks informational lines on standard output.
	InfoPrefix = "I "

	// ErrorPrefix marks error lines on standard error.
	ErrorPrefix = "E "

	// SeparatorLine is the visual separator used between report sections.
	SeparatorLine = "========================================================================="
)

// =============================================================================
// Logger Interface
// =============================================================================

// Logger is the logging contract shared by the benchmark components.
type Logger interface {
	// Info logs an informational message (printf-style).
	Info(format string, args ...interface{})

	// Error logs an error message (printf-style).
	Error(format string, args ...interface{})

	// Separator logs a visual separator line.
	Separator()

	// Sync forces a flush of any file-backed output.
	Sync()

	// Close flushes and closes any file-backed output.
	Close()
}

// =============================================================================
// StreamLogger Implementation
// =============================================================================

// StreamLogger implements Logger over a pair of writers, with optional mirror
// files. The zero value is not usable; construct with NewStreamLogger or
// NewWriterLogger.
type StreamLogger struct {
	mu        sync.Mutex
	out       io.Writer
	errOut    io.Writer
	logFile   *os.File
	errorFile *os.File
}

// NewStreamLogger creates a logger writing to stdout/stderr. When logPath or
// errorPath is non-empty the corresponding stream is mirrored into that file;
// existing files are truncated.
func NewStreamLogger(logPath, errorPath string) (*StreamLogger, error) {
	l := &StreamLogger{
		out:    os.Stdout,
		errOut: os.Stderr,
	}

	if logPath != "" {
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open log file %s", logPath)
		}
		l.logFile = logFile
	}

	if errorPath != "" {
		errorFile, err := os.OpenFile(errorPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			if l.logFile != nil {
				l.logFile.Close()
			}
			return nil, errors.Wrapf(err, "failed to open error file %s", errorPath)
		}
		l.errorFile = errorFile
	}

	return l, nil
}

// NewWriterLogger creates a logger over arbitrary writers. Used by tests and
// by tools that capture output themselves. No mirror files are attached.
func NewWriterLogger(out, errOut io.Writer) *StreamLogger {
	return &StreamLogger{out: out, errOut: errOut}
}

// Info logs an informational message to the output stream.
func (l *StreamLogger) Info(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.out, "%s%s\n", InfoPrefix, msg)
	if l.logFile != nil {
		fmt.Fprintf(l.logFile, "%s%s\n", InfoPrefix, msg)
	}
}

// Error logs an error message to the error stream. When mirror files are
// configured the message goes to both files, so the log file alone still
// tells the whole story of a run.
func (l *StreamLogger) Error(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.errOut, "%s%s\n", ErrorPrefix, msg)
	if l.errorFile != nil {
		fmt.Fprintf(l.errorFile, "%s%s\n", ErrorPrefix, msg)
	}
	if l.logFile != nil {
		fmt.Fprintf(l.logFile, "%s%s\n", ErrorPrefix, msg)
	}
}

// Separator logs a visual separator line to the output stream.
func (l *StreamLogger) Separator() {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.out, "%s%s\n", InfoPrefix, SeparatorLine)
	if l.logFile != nil {
		fmt.Fprintf(l.logFile, "%s%s\n", InfoPrefix, SeparatorLine)
	}
}

// Sync forces a flush of the mirror files to disk.
func (l *StreamLogger) Sync() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		l.logFile.Sync()
	}
	if l.errorFile != nil {
		l.errorFile.Sync()
	}
}

// Close closes the mirror files after syncing. The stdout/stderr streams are
// left open.
func (l *StreamLogger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		l.logFile.Sync()
		l.logFile.Close()
		l.logFile = nil
	}
	if l.errorFile != nil {
		l.errorFile.Sync()
		l.errorFile.Close()
		l.errorFile = nil
	}
}
