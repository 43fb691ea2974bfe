package vault

import "time"

// Clock abstracts time reading and timer creation so the auto-lock deadline
// can be driven by virtual time in tests instead of sleeping.
type Clock interface {
	// Now returns the current instant.
	Now() time.Time

	// AfterFunc schedules f to run after d and returns the timer
	// controlling it.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the controllable handle returned by [Clock.AfterFunc].
type Timer interface {
	// Stop prevents the timer from firing. Reports whether it was still
	// pending.
	Stop() bool

	// Reset reschedules the timer to fire after d from now.
	Reset(d time.Duration) bool
}

type realClock struct{}

// NewRealClock returns the wall-time [Clock] used outside tests.
func NewRealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
