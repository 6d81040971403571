package ports

import "time"

// Cancellable stops whatever a Scheduler call armed. Cancel is idempotent.
type Cancellable interface {
	Cancel()
}

// Scheduler decouples timer-driven lifecycle events from any global
// execution context by being an explicitly injected collaborator. Task
// callbacks run on the scheduler's own goroutine(s) and must only enqueue
// messages, never mutate actor state directly.
type Scheduler interface {
	ScheduleAtFixedRate(initialDelay, interval time.Duration, task func()) Cancellable
	ScheduleOnce(delay time.Duration, task func()) Cancellable
}
