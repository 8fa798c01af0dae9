//go:build !deadlock

// Package syncutil provides the mutex types used to serialize response processing.
// Standard sync types are used by default; build with -tags=deadlock to route them
// through github.com/sasha-s/go-deadlock.
package syncutil

import "sync"

// Mutex wraps sync.Mutex.
//
//nolint:gocritic // embedding exposes Lock/Unlock directly
type Mutex struct {
	sync.Mutex
}
