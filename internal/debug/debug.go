// Package debug provides RW_DEBUG-gated diagnostics and the CLI's
// quiet/verbose output switches.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	enabled     = os.Getenv("RW_DEBUG") != ""
	verboseMode = false
	quietMode   = false
	logMutex    sync.Mutex

	stderr io.Writer = os.Stderr
	stdout io.Writer = os.Stdout
)

func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet enables quiet mode (suppress non-essential output)
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet returns true if quiet mode is enabled
func IsQuiet() bool {
	return quietMode
}

func Logf(format string, args ...any) {
	if enabled || verboseMode {
		fmt.Fprintf(stderr, format, args...)
	}
}

// PrintNormal prints output unless quiet mode is enabled.
func PrintNormal(format string, args ...any) {
	if !quietMode {
		fmt.Fprintf(stdout, format, args...)
	}
}

// PrintlnNormal prints a line unless quiet mode is enabled
func PrintlnNormal(args ...any) {
	if !quietMode {
		fmt.Fprintln(stdout, args...)
	}
}

// EventLogName is the audit log file kept inside the wallet directory.
const EventLogName = "events.log"

// LogEvent appends an audit line to <dir>/events.log.
// Format: TIMESTAMP|EVENT_CODE|SUBJECT|ACTOR|DETAILS
//
// Failures are silent; the audit trail must never interrupt a wallet operation.
func LogEvent(dir, eventCode, subject, details string) {
	if dir == "" {
		return
	}
	if subject == "" {
		subject = "none"
	}
	actor := os.Getenv("RW_ACTOR")
	if actor == "" {
		actor = os.Getenv("USER")
		if actor == "" {
			actor = "unknown"
		}
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	entry := fmt.Sprintf("%s|%s|%s|%s|%s\n", timestamp, eventCode, subject, actor, details)

	logMutex.Lock()
	defer logMutex.Unlock()

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return
	}
	// #nosec G304 - path is the wallet directory
	file, err := os.OpenFile(filepath.Join(dir, EventLogName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(entry)
}
