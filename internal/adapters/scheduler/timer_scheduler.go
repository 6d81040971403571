// Package scheduler provides the production Scheduler, backed by
// time.Ticker/time.Timer.
package scheduler

import (
	"sync"
	"time"

	"github.com/windowkeep/sentrywin/internal/ports"
)

// Real is the production Scheduler.
type Real struct{}

// cancelFunc adapts a plain func() to ports.Cancellable, idempotent via
// sync.Once.
type cancelFunc struct {
	once sync.Once
	fn   func()
}

func (c *cancelFunc) Cancel() {
	c.once.Do(func() {
		if c.fn != nil {
			c.fn()
		}
	})
}

func (Real) ScheduleAtFixedRate(initialDelay, interval time.Duration, task func()) ports.Cancellable {
	stop := make(chan struct{})

	go func() {
		timer := time.NewTimer(initialDelay)
		defer timer.Stop()

		select {
		case <-stop:
			return
		case <-timer.C:
		}
		task()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				task()
			}
		}
	}()

	return &cancelFunc{fn: func() { close(stop) }}
}

func (Real) ScheduleOnce(delay time.Duration, task func()) ports.Cancellable {
	timer := time.AfterFunc(delay, task)
	return &cancelFunc{fn: func() { timer.Stop() }}
}

var _ ports.Scheduler = Real{}
