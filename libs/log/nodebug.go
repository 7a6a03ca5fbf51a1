//go:build nodebug
// +build nodebug

package log

const LogDebug = false
