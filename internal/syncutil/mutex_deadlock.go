//go:build deadlock

// Package syncutil provides the mutex types used to serialize response processing.
// This file is compiled when building with -tags=deadlock.
package syncutil

import deadlock "github.com/sasha-s/go-deadlock"

// Mutex wraps deadlock.Mutex so lock-order inversions between the dispatcher
// and session callers are reported.
type Mutex struct {
	deadlock.Mutex
}
