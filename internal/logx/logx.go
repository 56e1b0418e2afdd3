// Package logx provides the two append-only log sinks the service writes
// to: an info stream and an error stream, following the teacher's plain
// *log.Logger idiom rather than a structured logging framework.
package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Logger bundles the info and error sinks used throughout the service.
type Logger struct {
	info  *log.Logger
	error *log.Logger
}

// Option customizes a Logger at construction time.
type Option func(*Logger)

// WithWriters overrides both sinks directly, primarily for tests that want
// to capture output in a buffer instead of a file.
func WithWriters(info, errw io.Writer) Option {
	return func(l *Logger) {
		l.info = log.New(info, "", log.LstdFlags)
		l.error = log.New(errw, "", log.LstdFlags)
	}
}

// New returns a Logger writing to the given file paths, creating parent
// directories as needed. An empty path falls back to os.Stdout/os.Stderr.
func New(infoPath, errorPath string, opts ...Option) (*Logger, error) {
	l := &Logger{
		info:  log.New(os.Stdout, "", log.LstdFlags),
		error: log.New(os.Stderr, "", log.LstdFlags),
	}

	if infoPath != "" {
		w, err := openAppend(infoPath)
		if err != nil {
			return nil, fmt.Errorf("opening info log %s: %w", infoPath, err)
		}
		l.info = log.New(w, "", log.LstdFlags)
	}
	if errorPath != "" {
		w, err := openAppend(errorPath)
		if err != nil {
			return nil, fmt.Errorf("opening error log %s: %w", errorPath, err)
		}
		l.error = log.New(w, "", log.LstdFlags)
	}

	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func openAppend(path string) (io.Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

// Infof writes a line to the info sink.
func (l *Logger) Infof(format string, args ...any) {
	if l == nil || l.info == nil {
		return
	}
	l.info.Printf(format, args...)
}

// Errorf writes a line to the error sink.
func (l *Logger) Errorf(format string, args ...any) {
	if l == nil || l.error == nil {
		return
	}
	l.error.Printf(format, args...)
}
