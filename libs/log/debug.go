//go:build !nodebug
// +build !nodebug

package log

// LogDebug is false when built with the nodebug tag, which compiles out the
// debug level entirely.
const LogDebug = true
