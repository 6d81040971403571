// Package clock provides Clock implementations for production and tests.
package clock

import (
	"sync"
	"time"

	"github.com/windowkeep/sentrywin/internal/ports"
)

// System is the production Clock, backed by time.Now.
type System struct{}

func (System) Now() time.Time { return time.Now() }

var _ ports.Clock = System{}

// Fixed is a test Clock that only advances when told to. It is safe for
// concurrent use since tests typically read it from the actor goroutine
// and advance it from the test goroutine.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed returns a Fixed clock starting at now.
func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d and returns the new time.
func (f *Fixed) Advance(d time.Duration) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	return f.now
}

// Set pins the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

var _ ports.Clock = (*Fixed)(nil)
