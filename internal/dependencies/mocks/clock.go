package mocks

import (
	"sync"
	"time"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/dependencies/clock"
)

// MockClock is a settable Clock for tests. It is safe to advance from the
// test goroutine while server goroutines read it.
type MockClock struct {
	mu      sync.RWMutex
	current time.Time
}

var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{current: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Advance moves the clock by d (negative d moves it back)
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

// Set sets the clock to the given time
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}
