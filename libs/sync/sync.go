//go:build !deadlock
// +build !deadlock

// Package sync wraps the standard mutexes so the ledgers can be built with
// deadlock detection by passing the deadlock build tag.
package sync

import "sync"

// A Mutex is a mutual exclusion lock.
type Mutex struct {
	sync.Mutex
}

// An RWMutex is a reader/writer mutual exclusion lock.
type RWMutex struct {
	sync.RWMutex
}
