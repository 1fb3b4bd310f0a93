package game

import "time"

// Timer is a pending scheduled call.
type Timer interface {
	// Stop prevents the call from running if it has not started yet.
	Stop() bool
}

// Scheduler runs f once after d elapses.
// The default implementation is backed by time.AfterFunc; tests supply a
// manual one so they can fire callbacks deterministically.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
