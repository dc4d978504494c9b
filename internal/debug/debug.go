// Package debug configures diagnostic output: the shared slog logger and
// the verbose/quiet switches set from the command line.
package debug

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	enabled     = os.Getenv("GHTRACK_DEBUG") != ""
	verboseMode = false
	quietMode   = false

	logMu  sync.Mutex
	logger *slog.Logger
	output io.Writer = os.Stderr
	stdout io.Writer = os.Stdout
)

func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	logMu.Lock()
	defer logMu.Unlock()
	verboseMode = verbose
	logger = nil
}

// SetQuiet enables quiet mode (suppress non-essential output)
func SetQuiet(quiet bool) {
	logMu.Lock()
	defer logMu.Unlock()
	quietMode = quiet
	logger = nil
}

// IsQuiet returns true if quiet mode is enabled
func IsQuiet() bool {
	logMu.Lock()
	defer logMu.Unlock()
	return quietMode
}

// SetStdout redirects PrintNormal. Used by tests.
func SetStdout(w io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	stdout = w
}

// SetOutput redirects the logger and Logf. Used by tests.
func SetOutput(w io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	output = w
	logger = nil
}

// Level returns the log level implied by the debug/verbose/quiet switches.
func Level() slog.Level {
	switch {
	case enabled || verboseMode:
		return slog.LevelDebug
	case quietMode:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Logger returns the process-wide logger. It is rebuilt after the
// switches change.
func Logger() *slog.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: Level()}))
	}
	return logger
}

// Logf writes to the debug output when verbose output is enabled.
func Logf(format string, args ...interface{}) {
	logMu.Lock()
	defer logMu.Unlock()
	if enabled || verboseMode {
		fmt.Fprintf(output, format, args...)
	}
}

// PrintNormal prints output unless quiet mode is enabled
// Use this for normal informational output that should be suppressed in quiet mode
func PrintNormal(format string, args ...interface{}) {
	logMu.Lock()
	w, quiet := stdout, quietMode
	logMu.Unlock()
	if !quiet {
		fmt.Fprintf(w, format, args...)
	}
}
