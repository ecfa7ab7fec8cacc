// Package logging provides the printf-style, flag-gated logging idiom used
// throughout this module, matching the debug-logging pattern of the
// statistics and genetic optimizer packages it is grounded on.
package logging

import "fmt"

// debugEnabled controls verbose [RL ...] tracing. Default is false; the
// stable "[RL BOOSTING] Incremental update" line (see Boosting) is never
// gated by this flag since external tooling parses it.
var debugEnabled = false

// SetDebug enables or disables verbose debug logging for this module.
func SetDebug(enabled bool) { debugEnabled = enabled }

// IsDebugEnabled reports whether verbose debug logging is active.
func IsDebugEnabled() bool { return debugEnabled }

// Debugf prints a formatted debug line, gated by SetDebug.
func Debugf(format string, args ...interface{}) {
	if debugEnabled {
		fmt.Printf(format, args...)
	}
}

// Debugln prints a debug line, gated by SetDebug.
func Debugln(args ...interface{}) {
	if debugEnabled {
		fmt.Println(args...)
	}
}

// Errorf prints an un-gated "[RL ... ERROR]" line. Internal failures are
// always logged once, then swallowed — the core never propagates an error
// into the host engine.
func Errorf(format string, args ...interface{}) {
	fmt.Printf("[RL ERROR] "+format, args...)
}

// Boosting prints the stable incremental-update log line documented in
// spec §6. The format is a public contract consumed by external tooling;
// never change field order or wording.
func Boosting(update int, samples int, totalTrees int, avgQError float64) {
	fmt.Printf("[RL BOOSTING] Incremental update #%d: trained on %d samples, total trees=%d, avg Q-error=%.4f\n",
		update, samples, totalTrees, avgQError)
}
