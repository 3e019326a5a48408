// Package plog provides the pack engine's debug-verbosity logging, mirroring
// the single global verbosity counter used by the reference implementation.
package plog

import "log"

// verbosity is the only mutable package-level state besides a pipeline
// registry (see pipeline.Registry); it is set once at process startup.
var verbosity int

// SetVerbosity sets the debug verbosity level. 0 disables debug output.
func SetVerbosity(level int) { verbosity = level }

// Verbosity returns the current debug verbosity level.
func Verbosity() int { return verbosity }

// Debugf logs a formatted debug message when verbosity is at least level.
func Debugf(level int, format string, args ...any) {
	if verbosity >= level {
		log.Printf(format, args...)
	}
}
