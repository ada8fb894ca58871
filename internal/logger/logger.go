// Package logger provides verbose logging for the sfdx CLI.
// When verbose mode is enabled via the --verbose flag or the log.verbose
// setting, debug messages are printed to stderr to help users follow
// auth, config and streaming activity.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// write holds the exclusive lock so concurrent lines never interleave.
func write(level, prefix, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "["+level+"] "+prefix+format+"\n", args...)
	}
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	write("DEBUG", "", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	write("INFO", "", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	write("WARN", "", format, args...)
}

// Logger prefixes every message with a component name.
type Logger struct {
	prefix string
}

// Named returns a Logger whose messages start with "component: ".
func Named(component string) *Logger {
	return &Logger{prefix: component + ": "}
}

// Debug prints a component message if verbose mode is enabled.
func (l *Logger) Debug(format string, args ...any) {
	write("DEBUG", l.prefix, format, args...)
}

// Info prints a component message if verbose mode is enabled.
func (l *Logger) Info(format string, args ...any) {
	write("INFO", l.prefix, format, args...)
}

// Warn prints a component message if verbose mode is enabled.
func (l *Logger) Warn(format string, args ...any) {
	write("WARN", l.prefix, format, args...)
}
