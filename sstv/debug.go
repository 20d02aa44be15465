package sstv

// Package-level debug switch, mirrored from the application's -debug
// flag. Gates only log volume, never behavior.
var debugMode bool

// SetDebug enables or disables verbose decode logging.
func SetDebug(v bool) { debugMode = v }

// DebugEnabled reports whether verbose logging is on.
func DebugEnabled() bool { return debugMode }
