package services

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return normalize(time.Now()) }

// FakeClock is a settable clock for tests and replays.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: normalize(t)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = normalize(t)
	c.mu.Unlock()
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = normalize(c.now.Add(d))
	c.mu.Unlock()
}

// normalize keeps every persisted timestamp in UTC at second precision so
// that stored values compare consistently across drivers.
func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
