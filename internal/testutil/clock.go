package testutil

import (
	"sync"
	"time"
)

// FakeClock is a controllable clock for loops that sleep through After.
type FakeClock struct {
	mu           sync.Mutex
	current      time.Time
	waiters      []fakeWaiter
	totalWaiters int // monotonically increasing count of all After() calls ever made
}

type fakeWaiter struct {
	fireAt time.Time
	ch     chan time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{current: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	c.waiters = append(c.waiters, fakeWaiter{fireAt: c.current.Add(d), ch: ch})
	c.totalWaiters++
	return ch
}

// Advance moves the clock forward by d and fires any waiters whose deadline
// has passed.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	var remaining []fakeWaiter
	for _, w := range c.waiters {
		if !c.current.Before(w.fireAt) {
			w.ch <- w.fireAt
		} else {
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining
}

// Set jumps to t without firing waiters. Only use it before the loop under test starts.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// WaitForWaiter blocks until at least n total After() calls have been made
// or timeout elapses.
func (c *FakeClock) WaitForWaiter(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		have := c.totalWaiters
		c.mu.Unlock()
		if have >= n {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

// PendingDuration returns how far the earliest pending waiter is from now.
func (c *FakeClock) PendingDuration() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.waiters) == 0 {
		return 0, false
	}
	earliest := c.waiters[0].fireAt
	for _, w := range c.waiters[1:] {
		if w.fireAt.Before(earliest) {
			earliest = w.fireAt
		}
	}
	return earliest.Sub(c.current), true
}
