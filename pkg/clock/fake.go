package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a controllable Clock for tests. Timers fire synchronously from
// Advance or Set, in deadline order, once the fake time reaches them.
type Fake struct {
	mu      sync.Mutex
	current time.Time
	timers  []*fakeTimer
	nextID  int
}

type fakeTimer struct {
	c        *Fake
	id       int
	deadline time.Time
	f        func()
	done     bool
}

// NewFake returns a fake clock set to start. A zero start uses a fixed reference time.
func NewFake(start time.Time) *Fake {
	if start.IsZero() {
		start = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	}
	return &Fake{current: start}
}

func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now as a function suitable for dependency injection
func (c *Fake) NowFunc() func() time.Time {
	return c.Now
}

func (c *Fake) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	c.nextID++
	t := &fakeTimer{c: c, id: c.nextID, deadline: c.current.Add(d), f: f}
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	return t
}

// Advance moves the clock forward and runs every timer that became due
func (c *Fake) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	target := c.current.Add(d)
	c.mu.Unlock()
	c.Set(target)
	return target
}

// Set moves the clock to t and runs every timer due at or before t.
// Timers created by fired callbacks are honoured in the same call.
func (c *Fake) Set(t time.Time) {
	for {
		c.mu.Lock()
		due := c.nextDueLocked(t)
		if due == nil {
			c.current = t
			c.mu.Unlock()
			return
		}
		due.done = true
		if due.deadline.After(c.current) {
			c.current = due.deadline
		}
		c.removeLocked(due)
		c.mu.Unlock()

		due.f()
	}
}

// Pending returns the number of timers that have not fired or been stopped
func (c *Fake) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *Fake) nextDueLocked(limit time.Time) *fakeTimer {
	if len(c.timers) == 0 {
		return nil
	}
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].deadline.Equal(c.timers[j].deadline) {
			return c.timers[i].id < c.timers[j].id
		}
		return c.timers[i].deadline.Before(c.timers[j].deadline)
	})
	if c.timers[0].deadline.After(limit) {
		return nil
	}
	return c.timers[0]
}

func (c *Fake) removeLocked(t *fakeTimer) {
	for i, other := range c.timers {
		if other == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.c.removeLocked(t)
	return true
}
