// Package clock abstracts wall-clock time and one-shot timers so alarm
// scheduling and auto-dismiss deadlines can be driven from tests.
package clock

import (
	"time"
)

// Clock is the time source used by the scheduler and the reminder surface
type Clock interface {
	Now() time.Time
	// AfterFunc calls f on its own goroutine once d has elapsed
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call
type Timer interface {
	// Stop prevents the call from running. It returns false if the call already ran or was stopped.
	Stop() bool
}

// Real is the Clock backed by package time
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Or returns c, or Real when c is nil
func Or(c Clock) Clock {
	if c == nil {
		return Real{}
	}
	return c
}
